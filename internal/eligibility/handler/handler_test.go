package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,Drainer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"eligo/internal/eligibility/handler/mocks"
	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/service"
	"eligo/internal/eligibility/worker"
	"eligo/internal/platform/queue"
	dErrors "eligo/pkg/domain-errors"
)

// =============================================================================
// Handler Test Suite
// =============================================================================
// Justification: the handler's job is decoding and status mapping. The service
// is mocked; requests go through the chi router so path parameters resolve as
// in production.

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	drainer *mocks.MockDrainer
	router  chi.Router
	now     time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.drainer = mocks.NewMockDrainer(s.ctrl)
	s.now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	h := New(s.service, s.drainer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *HandlerSuite) errorName(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	s.decode(rec, &body)
	return body.Error
}

func (s *HandlerSuite) storedCheck(status models.CheckStatus) *models.EligibilityCheck {
	req := models.NewCheckRequest(models.CheckTypeFreeSchoolMeals, models.FreeSchoolMealsPayload{
		Identity: models.Identity{LastName: "Smith", DateOfBirth: "1990-01-01", NationalInsuranceNumber: "AB123456C"},
	})
	payload, err := req.Encode()
	s.Require().NoError(err)
	return &models.EligibilityCheck{
		ID:        uuid.New(),
		Type:      models.CheckTypeFreeSchoolMeals,
		Status:    status,
		Payload:   payload,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
}

const smithBody = `{"lastName":"Smith","dateOfBirth":"1990-01-01","nationalInsuranceNumber":"AB123456C"}`

// =============================================================================
// POST /check/{type}
// =============================================================================

func (s *HandlerSuite) TestSubmit() {
	s.Run("queued check is accepted", func() {
		check := s.storedCheck(models.StatusQueuedForProcessing)
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req models.CheckRequest) (*models.EligibilityCheck, error) {
				s.Equal(models.CheckTypeFreeSchoolMeals, req.Type)
				s.Equal("AB123456C", req.Identity().NationalInsuranceNumber)
				return check, nil
			})

		rec := s.do(http.MethodPost, "/check/FreeSchoolMeals", smithBody)
		s.Require().Equal(http.StatusAccepted, rec.Code)
		var resp CheckResponse
		s.decode(rec, &resp)
		s.Equal(check.ID.String(), resp.ID)
		s.Equal("queuedForProcessing", resp.Status)
		s.Equal("/check/"+check.ID.String()+"/status", resp.Links.Status)
		s.Require().NotNil(resp.Subject)
		s.Equal("Smith", resp.Subject.LastName)
	})

	s.Run("cached answer is returned directly", func() {
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(s.storedCheck(models.StatusEligible), nil)

		rec := s.do(http.MethodPost, "/check/FreeSchoolMeals", smithBody)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("unknown check type", func() {
		rec := s.do(http.MethodPost, "/check/CouncilTax", smithBody)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("unknown field is rejected before the service", func() {
		rec := s.do(http.MethodPost, "/check/FreeSchoolMeals", `{"lastName":"Smith","postcode":"AB1 2CD"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("bad_request", s.errorName(rec))
	})

	s.Run("validation failure", func() {
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "exactly one of nationalInsuranceNumber or nationalAsylumSeekerServiceNumber is required"))

		rec := s.do(http.MethodPost, "/check/FreeSchoolMeals", `{"lastName":"Smith","dateOfBirth":"1990-01-01"}`)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
		s.Equal("validation_error", s.errorName(rec))
	})
}

// =============================================================================
// GET /check/{id}, PATCH /check/{id}/status
// =============================================================================

func (s *HandlerSuite) TestGetCheck() {
	s.Run("found", func() {
		check := s.storedCheck(models.StatusNotEligible)
		s.service.EXPECT().GetCheck(gomock.Any(), check.ID).Return(check, nil)

		rec := s.do(http.MethodGet, "/check/"+check.ID.String(), "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var resp CheckResponse
		s.decode(rec, &resp)
		s.Equal("notEligible", resp.Status)
	})

	s.Run("not found", func() {
		id := uuid.New()
		s.service.EXPECT().GetCheck(gomock.Any(), id).Return(nil, service.ErrCheckNotFound)

		rec := s.do(http.MethodGet, "/check/"+id.String(), "")
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed id", func() {
		rec := s.do(http.MethodGet, "/check/12345", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestUpdateStatus() {
	s.Run("override", func() {
		check := s.storedCheck(models.StatusError)
		s.service.EXPECT().UpdateStatus(gomock.Any(), check.ID, models.StatusError).Return(check, nil)

		rec := s.do(http.MethodPatch, "/check/"+check.ID.String()+"/status", `{"status":"error"}`)
		s.Require().Equal(http.StatusOK, rec.Code)
		var resp CheckResponse
		s.decode(rec, &resp)
		s.Equal("error", resp.Status)
	})

	s.Run("unknown status never reaches the service", func() {
		rec := s.do(http.MethodPatch, "/check/"+uuid.NewString()+"/status", `{"status":"pending"}`)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})
}

// =============================================================================
// POST /check/{id}/process, POST /engine/process
// =============================================================================

func (s *HandlerSuite) TestProcess() {
	cases := []struct {
		name       string
		status     models.CheckStatus
		err        error
		wantStatus int
	}{
		{"resolved", models.StatusEligible, nil, http.StatusOK},
		{"already terminal", models.StatusNotEligible, service.ErrNotProcessable, http.StatusConflict},
		{"unknown check", "", service.ErrCheckNotFound, http.StatusNotFound},
		{
			"source unavailable",
			models.StatusQueuedForProcessing,
			dErrors.Wrap(fmt.Errorf("timeout"), dErrors.CodeUpstreamUnavailable, "verification failed"),
			http.StatusServiceUnavailable,
		},
		{
			"invariant violation",
			models.StatusQueuedForProcessing,
			dErrors.Wrap(fmt.Errorf("four live awards"), dErrors.CodeInvariantViolation, "verification failed"),
			http.StatusInternalServerError,
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			id := uuid.New()
			s.service.EXPECT().Process(gomock.Any(), id).Return(tc.status, tc.err)

			rec := s.do(http.MethodPost, "/check/"+id.String()+"/process", "")
			s.Equal(tc.wantStatus, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestDrain() {
	s.Run("drains the named queue", func() {
		summary := worker.Summary{Queue: "standard", Received: 3, Resolved: 2, Retained: 1}
		s.drainer.EXPECT().Drain(gomock.Any(), "standard").Return(summary, nil)

		rec := s.do(http.MethodPost, "/engine/process?queue=standard", "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var got worker.Summary
		s.decode(rec, &got)
		s.Equal(summary, got)
	})

	s.Run("queue is required", func() {
		rec := s.do(http.MethodPost, "/engine/process", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown queue", func() {
		s.drainer.EXPECT().Drain(gomock.Any(), "priority").Return(worker.Summary{Queue: "priority"}, fmt.Errorf("%w: %q", queue.ErrUnknownQueue, "priority"))

		rec := s.do(http.MethodPost, "/engine/process?queue=priority", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// Bulk
// =============================================================================

func (s *HandlerSuite) TestSubmitBulk() {
	s.Run("accepted", func() {
		groupID := uuid.New()
		first, second := s.storedCheck(models.StatusQueuedForProcessing), s.storedCheck(models.StatusEligible)
		one, two := 1, 2
		first.Sequence, second.Sequence = &one, &two
		s.service.EXPECT().SubmitBulk(gomock.Any(), gomock.Len(2)).Return(groupID, []*models.EligibilityCheck{first, second}, nil)

		rec := s.do(http.MethodPost, "/bulk-check", `{"type":"FreeSchoolMeals","data":[`+smithBody+`,`+smithBody+`]}`)
		s.Require().Equal(http.StatusAccepted, rec.Code)
		var resp BulkSubmissionResponse
		s.decode(rec, &resp)
		s.Equal(groupID.String(), resp.GroupID)
		s.Len(resp.Items, 2)
		s.Equal(2, resp.Items[1].Sequence)
		s.Equal("/bulk-check/"+groupID.String()+"/progress", resp.Links.Progress)
	})

	s.Run("bad item names its position", func() {
		rec := s.do(http.MethodPost, "/bulk-check", `{"type":"FreeSchoolMeals","data":[`+smithBody+`,{"surname":"x"}]}`)
		s.Require().Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "item 2")
	})

	s.Run("empty batch", func() {
		rec := s.do(http.MethodPost, "/bulk-check", `{"type":"FreeSchoolMeals","data":[]}`)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("unknown type", func() {
		rec := s.do(http.MethodPost, "/bulk-check", `{"type":"Nope","data":[`+smithBody+`]}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestBulkProgressAndResults() {
	groupID := uuid.New()

	s.Run("progress", func() {
		s.service.EXPECT().BulkStatus(gomock.Any(), groupID).Return(&models.BulkStatus{Total: 5, Complete: 3}, nil)

		rec := s.do(http.MethodGet, "/bulk-check/"+groupID.String()+"/progress", "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var resp BulkProgressResponse
		s.decode(rec, &resp)
		s.Equal(5, resp.Total)
		s.Equal(3, resp.Complete)
	})

	s.Run("results keep service order", func() {
		a, b := uuid.New(), uuid.New()
		s.service.EXPECT().BulkResults(gomock.Any(), groupID).Return([]models.BulkResult{
			{CheckID: a, Sequence: 1, Status: models.StatusEligible, Identity: models.Identity{LastName: "Adams"}},
			{CheckID: b, Sequence: 2, Status: models.StatusQueuedForProcessing, Identity: models.Identity{LastName: "Baker"}},
		}, nil)

		rec := s.do(http.MethodGet, "/bulk-check/"+groupID.String(), "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var resp BulkResultsResponse
		s.decode(rec, &resp)
		s.Require().Len(resp.Data, 2)
		s.Equal(a.String(), resp.Data[0].ID)
		s.Equal("Baker", resp.Data[1].Subject.LastName)
	})

	s.Run("unknown group", func() {
		other := uuid.New()
		s.service.EXPECT().BulkStatus(gomock.Any(), other).Return(nil, service.ErrGroupNotFound)

		rec := s.do(http.MethodGet, "/bulk-check/"+other.String()+"/progress", "")
		s.Equal(http.StatusNotFound, rec.Code)
	})
}
