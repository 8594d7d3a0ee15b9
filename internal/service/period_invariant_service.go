package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/backend"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/jobs"
)

// JobTypePeriodInvariantCheck is the queue job type handled by PeriodInvariantService.
const JobTypePeriodInvariantCheck = "period.invariant_check"

// ErrCurrentPeriodInvariant is reported when the backend flags more than one period current.
var ErrCurrentPeriodInvariant = errors.New("current period invariant violated")

type periodSnapshotter interface {
	Snapshot(ctx context.Context) ([]models.AcademicPeriod, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type invariantCheckPayload struct {
	Reason string
	Token  string
}

// InvariantReport summarises one pass over the period collection.
type InvariantReport struct {
	Total      int
	CurrentIDs []string
}

// Holds reports whether at most one period is current. Zero is legal.
func (r InvariantReport) Holds() bool {
	return len(r.CurrentIDs) <= 1
}

// PeriodInvariantService verifies, read-only, that a single period is flagged current.
type PeriodInvariantService struct {
	periods      periodSnapshotter
	queue        jobEnqueuer
	serviceToken string
	reporter     errorReporter
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewPeriodInvariantService constructs the checker. serviceToken, when set, authenticates the
// background reads instead of the token of the request that scheduled them.
func NewPeriodInvariantService(periods periodSnapshotter, queue jobEnqueuer, serviceToken string, reporter errorReporter, metrics *MetricsService, logger *zap.Logger) *PeriodInvariantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodInvariantService{
		periods:      periods,
		queue:        queue,
		serviceToken: serviceToken,
		reporter:     reporter,
		metrics:      metrics,
		logger:       logger,
	}
}

// Schedule enqueues a background check. Enqueue failures are logged only.
func (s *PeriodInvariantService) Schedule(ctx context.Context, reason string) {
	if s == nil || s.queue == nil {
		return
	}
	payload := invariantCheckPayload{Reason: reason, Token: backend.Token(ctx)}
	if err := s.queue.Enqueue(jobs.Job{Type: JobTypePeriodInvariantCheck, Payload: payload}); err != nil {
		s.logger.Warn("failed to schedule period invariant check", zap.String("reason", reason), zap.Error(err))
	}
}

// Handle is the queue handler for JobTypePeriodInvariantCheck.
func (s *PeriodInvariantService) Handle(ctx context.Context, job jobs.Job) error {
	payload, _ := job.Payload.(invariantCheckPayload)
	token := s.serviceToken
	if token == "" {
		token = payload.Token
	}
	if token != "" {
		ctx = backend.WithToken(ctx, token)
	}

	report, err := s.Check(ctx)
	if err != nil {
		return err
	}
	if !report.Holds() {
		s.logger.Warn("period invariant check failed",
			zap.String("job_id", job.ID),
			zap.String("reason", payload.Reason),
			zap.Strings("current_ids", report.CurrentIDs),
		)
	}
	return nil
}

// Check counts current periods and publishes the count. A violation is logged and reported,
// never repaired.
func (s *PeriodInvariantService) Check(ctx context.Context) (InvariantReport, error) {
	periods, err := s.periods.Snapshot(ctx)
	if err != nil {
		return InvariantReport{}, fmt.Errorf("period invariant check: %w", err)
	}

	report := InvariantReport{Total: len(periods)}
	for _, p := range periods {
		if p.IsCurrent {
			report.CurrentIDs = append(report.CurrentIDs, p.ID)
		}
	}
	s.metrics.SetCurrentPeriods(len(report.CurrentIDs))

	if !report.Holds() && s.reporter != nil {
		s.reporter.CaptureError(
			fmt.Errorf("%w: %d periods flagged current", ErrCurrentPeriodInvariant, len(report.CurrentIDs)),
			map[string]string{"component": "period_invariant"},
		)
	}
	return report, nil
}
