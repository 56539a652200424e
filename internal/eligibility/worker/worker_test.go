package worker

//go:generate mockgen -source=worker.go -destination=mocks/mocks.go -package=mocks Processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"eligo/internal/eligibility/metrics"
	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/service"
	"eligo/internal/eligibility/worker/mocks"
	"eligo/internal/platform/queue"
	dErrors "eligo/pkg/domain-errors"
	"eligo/pkg/requestcontext"
)

// =============================================================================
// Worker Test Suite
// =============================================================================
// Justification: message settlement is the worker's only job. A real memory
// queue with a controllable clock makes redelivery observable; the processor
// is mocked so each settlement branch can be forced.

type WorkerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	processor *mocks.MockProcessor
	standard  *queue.MemoryQueue
	metrics   *metrics.Metrics
	worker    *Worker

	mu  sync.Mutex
	now time.Time
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.processor = mocks.NewMockProcessor(s.ctrl)
	s.now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s.standard = queue.NewMemoryQueue("standard", time.Minute, queue.WithClock(s.clock))
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.worker = New(queue.NewRegistry(s.standard), s.processor,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *WorkerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *WorkerSuite) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *WorkerSuite) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func (s *WorkerSuite) enqueue(id uuid.UUID) {
	body, err := json.Marshal(models.ProcessMessage{Type: models.CheckTypeFreeSchoolMeals, ID: id.String()})
	s.Require().NoError(err)
	s.Require().NoError(s.standard.Send(context.Background(), body))
}

func (s *WorkerSuite) depth() int {
	n, err := s.standard.ApproxDepth(context.Background())
	s.Require().NoError(err)
	return n
}

func (s *WorkerSuite) settled(act action) float64 {
	return testutil.ToFloat64(s.metrics.WorkerMessages.WithLabelValues("standard", string(act)))
}

// =============================================================================
// Settlement
// =============================================================================

func (s *WorkerSuite) TestTerminalOutcomeDeletesMessage() {
	id := uuid.New()
	s.enqueue(id)
	s.processor.EXPECT().Process(gomock.Any(), id).Return(models.StatusEligible, nil)

	summary, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(Summary{Queue: "standard", Received: 1, Resolved: 1}, summary)
	s.Equal(0, s.depth())
	s.Equal(1.0, s.settled(actionResolved))
}

func (s *WorkerSuite) TestFirstDeliveryFailureIsRetried() {
	id := uuid.New()
	s.enqueue(id)
	outage := dErrors.New(dErrors.CodeUpstreamUnavailable, "verification failed")

	s.processor.EXPECT().Process(gomock.Any(), id).Return(models.StatusQueuedForProcessing, outage)
	summary, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(1, summary.Retained)
	s.Equal(1, s.depth(), "message stays for redelivery")

	s.advance(2 * time.Minute)
	s.processor.EXPECT().Process(gomock.Any(), id).Return(models.StatusNotEligible, nil)
	summary, err = s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(1, summary.Resolved)
	s.Equal(0, s.depth())
}

func (s *WorkerSuite) TestRedeliveredFailureForcesError() {
	id := uuid.New()
	s.enqueue(id)
	outage := dErrors.New(dErrors.CodeUpstreamUnavailable, "verification failed")

	s.processor.EXPECT().Process(gomock.Any(), id).Return(models.StatusQueuedForProcessing, outage).Times(2)
	s.processor.EXPECT().UpdateStatus(gomock.Any(), id, models.StatusError).DoAndReturn(
		func(ctx context.Context, id uuid.UUID, status models.CheckStatus) (*models.EligibilityCheck, error) {
			s.Equal(service.ActorWorker, requestcontext.Actor(ctx))
			return &models.EligibilityCheck{ID: id, Status: status}, nil
		})

	_, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.advance(2 * time.Minute)

	summary, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(Summary{Queue: "standard", Received: 1, Forced: 1}, summary)
	s.Equal(0, s.depth())
	s.Equal(1.0, s.settled(actionForced))
}

func (s *WorkerSuite) TestForceFailureKeepsMessage() {
	id := uuid.New()
	s.enqueue(id)
	// Simulate an earlier delivery that was never acknowledged.
	_, err := s.standard.ReceiveBatch(context.Background(), 1)
	s.Require().NoError(err)
	s.advance(2 * time.Minute)

	s.processor.EXPECT().Process(gomock.Any(), id).Return(models.CheckStatus(""), dErrors.New(dErrors.CodeInternal, "load check"))
	s.processor.EXPECT().UpdateStatus(gomock.Any(), id, models.StatusError).Return(nil, dErrors.New(dErrors.CodeInternal, "db down"))

	summary, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(1, summary.Retained)
	s.Equal(1, s.depth())
}

func (s *WorkerSuite) TestUnknownCheckIsDropped() {
	id := uuid.New()
	s.enqueue(id)
	s.processor.EXPECT().Process(gomock.Any(), id).Return(models.CheckStatus(""), service.ErrCheckNotFound)

	summary, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(1, summary.Dropped)
	s.Equal(0, s.depth())
}

func (s *WorkerSuite) TestDuplicateDeliveryIsDroppedWithoutStatusChange() {
	id := uuid.New()
	s.enqueue(id)
	s.enqueue(id)
	s.processor.EXPECT().Process(gomock.Any(), id).Return(models.StatusEligible, nil)
	s.processor.EXPECT().Process(gomock.Any(), id).Return(models.StatusEligible, service.ErrNotProcessable)
	s.processor.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	summary, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(Summary{Queue: "standard", Received: 2, Resolved: 1, Dropped: 1}, summary)
	s.Equal(0, s.depth())
}

func (s *WorkerSuite) TestPoisonMessagesAreDropped() {
	for _, body := range []string{
		`not json`,
		`{"type":"FreeSchoolMeals","id":"not-a-uuid"}`,
		fmt.Sprintf(`{"type":"Unknown","id":%q}`, uuid.NewString()),
	} {
		s.Require().NoError(s.standard.Send(context.Background(), []byte(body)))
	}
	s.processor.EXPECT().Process(gomock.Any(), gomock.Any()).Times(0)

	summary, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(3, summary.Dropped)
	s.Equal(0, s.depth())
}

// =============================================================================
// Draining
// =============================================================================

func (s *WorkerSuite) TestDrainSpansSeveralBatches() {
	for range 40 {
		s.enqueue(uuid.New())
	}
	s.processor.EXPECT().Process(gomock.Any(), gomock.Any()).Return(models.StatusNotEligible, nil).Times(40)

	summary, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(40, summary.Resolved)
	s.Equal(0, s.depth())
	s.Equal(0.0, testutil.ToFloat64(s.metrics.QueueDepth.WithLabelValues("standard")))
}

func (s *WorkerSuite) TestEmptyQueueDoesNothing() {
	summary, err := s.worker.Drain(context.Background(), "standard")
	s.Require().NoError(err)
	s.Equal(Summary{Queue: "standard"}, summary)
}

func (s *WorkerSuite) TestUnknownQueueIsFatal() {
	_, err := s.worker.Drain(context.Background(), "priority")
	s.ErrorIs(err, queue.ErrUnknownQueue)
}

func (s *WorkerSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.worker.Run(ctx, 10*time.Millisecond, "standard") }()
	cancel()
	s.NoError(<-done)
}

func (s *WorkerSuite) TestRunRejectsUnknownQueue() {
	err := s.worker.Run(context.Background(), time.Millisecond, "priority")
	s.ErrorIs(err, queue.ErrUnknownQueue)
}
