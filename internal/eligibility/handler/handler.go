// Package handler exposes the check lifecycle over HTTP: submission, status,
// administrative override, single-check processing, queue drains and bulk
// progress.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/worker"
	"eligo/internal/platform/queue"
	dErrors "eligo/pkg/domain-errors"
	"eligo/pkg/platform/httputil"
	"eligo/pkg/requestcontext"
)

const maxCheckBodyBytes = 64 << 10

// Service is the check lifecycle the handler drives.
type Service interface {
	Submit(ctx context.Context, req models.CheckRequest) (*models.EligibilityCheck, error)
	SubmitBulk(ctx context.Context, reqs []models.CheckRequest) (uuid.UUID, []*models.EligibilityCheck, error)
	Process(ctx context.Context, id uuid.UUID) (models.CheckStatus, error)
	GetCheck(ctx context.Context, id uuid.UUID) (*models.EligibilityCheck, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CheckStatus) (*models.EligibilityCheck, error)
	BulkStatus(ctx context.Context, groupID uuid.UUID) (*models.BulkStatus, error)
	BulkResults(ctx context.Context, groupID uuid.UUID) ([]models.BulkResult, error)
}

// Drainer empties a named queue.
type Drainer interface {
	Drain(ctx context.Context, queueName string) (worker.Summary, error)
}

type Handler struct {
	service Service
	drainer Drainer
	logger  *slog.Logger
}

func New(service Service, drainer Drainer, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		drainer: drainer,
		logger:  logger,
	}
}

// Register mounts the eligibility endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/check/{type}", h.HandleSubmit)
	r.Get("/check/{id}", h.HandleGetCheck)
	r.Patch("/check/{id}/status", h.HandleUpdateStatus)
	r.Post("/check/{id}/process", h.HandleProcess)
	r.Post("/bulk-check", h.HandleSubmitBulk)
	r.Get("/bulk-check/{groupId}/progress", h.HandleBulkProgress)
	r.Get("/bulk-check/{groupId}", h.HandleBulkResults)
	r.Post("/engine/process", h.HandleDrain)
}

// HandleSubmit handles POST /check/{type}. The body is the payload schema of
// the named check type.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checkType, err := models.ParseCheckType(chi.URLParam(r, "type"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, err.Error()))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCheckBodyBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable request body"))
		return
	}
	req, err := models.DecodeCheckRequest(checkType, body)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	check, err := h.service.Submit(ctx, req)
	if err != nil {
		h.logFailure(ctx, "check submission failed", err, "type", checkType)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusAccepted
	if check.Status.IsTerminal() {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, FromCheck(check))
}

// HandleSubmitBulk handles POST /bulk-check.
func (h *Handler) HandleSubmitBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := httputil.DecodeJSON[BulkCheckRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqs, err := body.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	groupID, checks, err := h.service.SubmitBulk(ctx, reqs)
	if err != nil && groupID == uuid.Nil {
		h.logFailure(ctx, "bulk submission failed", err, "items", len(reqs))
		httputil.WriteError(w, err)
		return
	}
	if err != nil {
		// Items that never reached the queue are already closed as error.
		h.logger.WarnContext(ctx, "bulk submission partially enqueued",
			"request_id", requestcontext.RequestID(ctx),
			"group_id", groupID,
			"error", err,
		)
	}
	httputil.WriteJSON(w, http.StatusAccepted, FromBulkSubmission(groupID, checks))
}

// HandleGetCheck handles GET /check/{id}.
func (h *Handler) HandleGetCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	check, err := h.service.GetCheck(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCheck(check))
}

// HandleUpdateStatus handles PATCH /check/{id}/status.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	body, err := httputil.DecodeJSON[StatusUpdateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := body.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	check, err := h.service.UpdateStatus(ctx, id, status)
	if err != nil {
		h.logFailure(ctx, "status override failed", err, "check_id", id)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "check status overridden",
		"request_id", requestcontext.RequestID(ctx),
		"check_id", id,
		"status", check.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromCheck(check))
}

// HandleProcess handles POST /check/{id}/process.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	start := time.Now()
	status, err := h.service.Process(ctx, id)
	if err != nil {
		h.logFailure(ctx, "check processing failed", err, "check_id", id)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "check processed",
		"request_id", requestcontext.RequestID(ctx),
		"check_id", id,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, ProcessResponse{ID: id.String(), Status: string(status)})
}

// HandleDrain handles POST /engine/process?queue=name.
func (h *Handler) HandleDrain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.TrimSpace(r.URL.Query().Get("queue"))
	if name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "queue query parameter is required"))
		return
	}
	summary, err := h.drainer.Drain(ctx, name)
	if err != nil {
		if errors.Is(err, queue.ErrUnknownQueue) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("unknown queue %q", name)))
			return
		}
		h.logFailure(ctx, "queue drain failed", err, "queue", name)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "queue drain interrupted"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleBulkProgress handles GET /bulk-check/{groupId}/progress.
func (h *Handler) HandleBulkProgress(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathUUID(w, r, "groupId")
	if !ok {
		return
	}
	status, err := h.service.BulkStatus(r.Context(), groupID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBulkStatus(groupID, status))
}

// HandleBulkResults handles GET /bulk-check/{groupId}.
func (h *Handler) HandleBulkResults(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathUUID(w, r, "groupId")
	if !ok {
		return
	}
	results, err := h.service.BulkResults(r.Context(), groupID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBulkResults(results))
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, param+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// logFailure logs server-side failures; client errors are only answered.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeNotFound, dErrors.CodeNotProcessable, dErrors.CodeConflict:
		return
	}
	args := append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, attrs...)
	h.logger.ErrorContext(ctx, msg, args...)
}
