package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	appErrors "github.com/MVitabar/Notas-Frontend-sub001/pkg/errors"
)

type auditStoreStub struct {
	mu      sync.Mutex
	records []models.ActivationAudit
	err     error
}

func (s *auditStoreStub) Create(ctx context.Context, audit *models.ActivationAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *audit)
	return s.err
}

func (s *auditStoreStub) ListByPeriod(ctx context.Context, periodID string, limit int) ([]models.ActivationAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActivationAudit
	for _, r := range s.records {
		if r.PeriodID == periodID {
			out = append(out, r)
		}
	}
	return out, nil
}

type schedulerStub struct {
	reasons []string
}

func (s *schedulerStub) Schedule(ctx context.Context, reason string) {
	s.reasons = append(s.reasons, reason)
}

type reporterStub struct {
	errs []error
	tags []map[string]string
}

func (r *reporterStub) CaptureError(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

type activationFixture struct {
	backend   *fakePeriodBackend
	audits    *auditStoreStub
	scheduler *schedulerStub
	reporter  *reporterStub
	metrics   *MetricsService
	svc       *PeriodActivationService
}

func newActivationFixture(periods ...models.AcademicPeriod) *activationFixture {
	fx := &activationFixture{
		backend:   newFakePeriodBackend(periods...),
		audits:    &auditStoreStub{},
		scheduler: &schedulerStub{},
		reporter:  &reporterStub{},
		metrics:   NewMetricsService(),
	}
	periodSvc := NewAcademicPeriodService(fx.backend, nil, nil, zap.NewNop())
	fx.svc = NewPeriodActivationService(periodSvc, ActivationDeps{
		Audits:   fx.audits,
		Checks:   fx.scheduler,
		Reporter: fx.reporter,
		Metrics:  fx.metrics,
	}, zap.NewNop())
	return fx
}

func period(id string, current bool, status models.PeriodStatus) models.AcademicPeriod {
	return models.AcademicPeriod{ID: id, Name: "Period " + id, StartDate: "2024-01-01", EndDate: "2024-12-31", IsCurrent: current, Status: status}
}

func (fx *activationFixture) outcomeCount(outcome models.ActivationOutcome) float64 {
	return counterValue(fx.metrics, "period_activations_total", "outcome", string(outcome))
}

func TestActivateSwitchesCurrentPeriod(t *testing.T) {
	fx := newActivationFixture(
		period("A", true, models.PeriodStatusActive),
		period("B", false, models.PeriodStatusUpcoming),
	)

	activated, err := fx.svc.Activate(context.Background(), "B", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, activated)
	assert.Equal(t, "B", activated.ID)
	assert.True(t, activated.IsCurrent)
	assert.Equal(t, models.PeriodStatusActive, activated.Status)

	a := fx.backend.get("A")
	assert.False(t, a.IsCurrent)
	assert.Equal(t, models.PeriodStatusCancelled, a.Status)
	assert.Equal(t, []string{"B"}, fx.backend.currentIDs())
	assert.Equal(t, []string{"A"}, fx.backend.updatesMatching(false))
	assert.Equal(t, []string{"B"}, fx.backend.updatesMatching(true))

	require.Len(t, fx.audits.records, 1)
	audit := fx.audits.records[0]
	assert.Equal(t, models.ActivationSucceeded, audit.Outcome)
	assert.Equal(t, models.StringList{"A"}, audit.DemotedIDs)
	require.NotNil(t, audit.ActorID)
	assert.Equal(t, "admin-1", *audit.ActorID)
	assert.Nil(t, audit.ErrorMessage)

	assert.Equal(t, []string{"activation:succeeded"}, fx.scheduler.reasons)
	assert.Equal(t, float64(1), fx.outcomeCount(models.ActivationSucceeded))
	assert.Empty(t, fx.reporter.errs)
}

func TestActivateWithoutCurrentPeriod(t *testing.T) {
	fx := newActivationFixture(
		period("X", false, models.PeriodStatusUpcoming),
		period("Y", false, models.PeriodStatusCompleted),
	)

	activated, err := fx.svc.Activate(context.Background(), "X", "")
	require.NoError(t, err)
	assert.Equal(t, "X", activated.ID)
	assert.Empty(t, fx.backend.updatesMatching(false))
	assert.Equal(t, []string{"X"}, fx.backend.updatesMatching(true))
	assert.Equal(t, []string{"X"}, fx.backend.currentIDs())
	assert.Equal(t, models.PeriodStatusCompleted, fx.backend.get("Y").Status)
	assert.Nil(t, fx.audits.records[0].ActorID)
}

func TestActivateIsIdempotent(t *testing.T) {
	fx := newActivationFixture(
		period("A", true, models.PeriodStatusActive),
		period("B", false, models.PeriodStatusUpcoming),
	)

	for i := 0; i < 2; i++ {
		activated, err := fx.svc.Activate(context.Background(), "A", "admin")
		require.NoError(t, err)
		assert.True(t, activated.IsCurrent)
	}
	assert.Empty(t, fx.backend.updatesMatching(false))
	assert.Equal(t, []string{"A", "A"}, fx.backend.updatesMatching(true))
	assert.Equal(t, []string{"A"}, fx.backend.currentIDs())
	assert.Equal(t, models.PeriodStatusUpcoming, fx.backend.get("B").Status)
}

func TestActivateDemotesEveryOtherCurrentPeriod(t *testing.T) {
	fx := newActivationFixture(
		period("A", true, models.PeriodStatusActive),
		period("B", false, models.PeriodStatusUpcoming),
		period("C", true, models.PeriodStatusActive),
		period("D", true, models.PeriodStatusActive),
	)

	_, err := fx.svc.Activate(context.Background(), "B", "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, fx.backend.updatesMatching(false))
	assert.Equal(t, []string{"B"}, fx.backend.currentIDs())
	assert.Equal(t, float64(3), counterValue(fx.metrics, "period_demotions_total", "result", "ok"))
}

func TestActivatePartialDemotionFailure(t *testing.T) {
	fx := newActivationFixture(
		period("A", true, models.PeriodStatusActive),
		period("B", false, models.PeriodStatusUpcoming),
		period("C", true, models.PeriodStatusActive),
	)
	fx.backend.updateErr["A"] = unavailable("A")

	activated, err := fx.svc.Activate(context.Background(), "B", "admin")
	require.Error(t, err)
	assert.Nil(t, activated)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPartialDemotion.Code, appErr.Code)
	assert.Equal(t, true, appErr.Details["state_changed"])
	assert.Equal(t, []string{"C"}, appErr.Details["demoted_ids"])
	assert.Equal(t, []string{"A"}, appErr.Details["failed_ids"])
	assert.Equal(t, []string{"A"}, appErr.Details["unconfirmed_ids"])

	// The period whose demotion failed is still current and the target was never promoted.
	assert.True(t, fx.backend.get("A").IsCurrent)
	assert.False(t, fx.backend.get("C").IsCurrent)
	assert.False(t, fx.backend.get("B").IsCurrent)
	assert.Empty(t, fx.backend.updatesMatching(true))

	require.Len(t, fx.reporter.errs, 1)
	assert.Equal(t, string(models.ActivationPartialDemotion), fx.reporter.tags[0]["outcome"])
	assert.Equal(t, []string{"activation:partial_demotion"}, fx.scheduler.reasons)
	assert.Equal(t, models.ActivationPartialDemotion, fx.audits.records[0].Outcome)
	assert.Equal(t, models.StringList{"A"}, fx.audits.records[0].FailedIDs)
	assert.NotNil(t, fx.audits.records[0].ErrorMessage)
}

func TestActivateDemotionRejectedWithNothingChanged(t *testing.T) {
	fx := newActivationFixture(
		period("A", true, models.PeriodStatusActive),
		period("B", false, models.PeriodStatusUpcoming),
	)
	fx.backend.updateErr["A"] = conflict("A")

	_, err := fx.svc.Activate(context.Background(), "B", "admin")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, false, appErr.Details["state_changed"])
	assert.Equal(t, []string{"A"}, appErr.Details["failed_ids"])
	assert.Equal(t, []string{"A"}, fx.backend.currentIDs())
	assert.Empty(t, fx.backend.updatesMatching(true))
	assert.Empty(t, fx.reporter.errs)
	assert.Empty(t, fx.scheduler.reasons)
	assert.Equal(t, float64(1), fx.outcomeCount(models.ActivationDemotionFailed))
}

func TestActivateDemotionWithUnknownOutcome(t *testing.T) {
	cases := map[string]error{
		"bad gateway after write":  unavailable("A"),
		"undecodable 2xx body":     fmt.Errorf("update academic period A: %w", appErrors.Wrap(errors.New("invalid character '<'"), appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, "undecodable backend response")),
		"deadline after the write": fmt.Errorf("update academic period A: %w", context.DeadlineExceeded),
	}
	for name, applyErr := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newActivationFixture(
				period("A", true, models.PeriodStatusActive),
				period("B", false, models.PeriodStatusUpcoming),
			)
			fx.backend.applyErr["A"] = applyErr

			activated, err := fx.svc.Activate(context.Background(), "B", "admin")
			require.Error(t, err)
			assert.Nil(t, activated)

			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrPartialDemotion.Code, appErr.Code)
			assert.Equal(t, "unknown", appErr.Details["state_changed"])
			assert.Equal(t, []string{"A"}, appErr.Details["unconfirmed_ids"])

			// The backend applied the demotion, so nothing is current and the target was not promoted.
			assert.Empty(t, fx.backend.currentIDs())
			assert.Empty(t, fx.backend.updatesMatching(true))
			require.Len(t, fx.reporter.errs, 1)
			assert.Equal(t, []string{"activation:partial_demotion"}, fx.scheduler.reasons)
			assert.Equal(t, models.ActivationPartialDemotion, fx.audits.records[0].Outcome)
		})
	}
}

func TestActivateDemotionWithoutDataCountsAsFailure(t *testing.T) {
	fx := newActivationFixture(
		period("A", true, models.PeriodStatusActive),
		period("B", false, models.PeriodStatusUpcoming),
	)
	fx.backend.noData["A"] = true

	_, err := fx.svc.Activate(context.Background(), "B", "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.backend.updatesMatching(true))
}

func TestActivatePromotionFailureAfterDemotion(t *testing.T) {
	fx := newActivationFixture(
		period("A", true, models.PeriodStatusActive),
		period("B", false, models.PeriodStatusUpcoming),
	)
	fx.backend.updateErr["B"] = unavailable("B")

	_, err := fx.svc.Activate(context.Background(), "B", "admin")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPromotionFailed.Code, appErr.Code)
	assert.Equal(t, true, appErr.Details["state_changed"])
	assert.Equal(t, []string{"A"}, appErr.Details["demoted_ids"])
	assert.Empty(t, fx.backend.currentIDs())
	require.Len(t, fx.reporter.errs, 1)
	assert.Equal(t, []string{"activation:promotion_failed"}, fx.scheduler.reasons)
}

func TestActivatePromotionFailureWithoutDemotions(t *testing.T) {
	fx := newActivationFixture(period("X", false, models.PeriodStatusUpcoming))
	fx.backend.noData["X"] = true

	_, err := fx.svc.Activate(context.Background(), "X", "admin")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, false, appErr.Details["state_changed"])
	assert.Equal(t, float64(1), fx.outcomeCount(models.ActivationFailed))
	assert.Empty(t, fx.reporter.errs)
}

func TestActivatePromotionWithUnknownOutcome(t *testing.T) {
	fx := newActivationFixture(period("X", false, models.PeriodStatusUpcoming))
	fx.backend.applyErr["X"] = unavailable("X")

	_, err := fx.svc.Activate(context.Background(), "X", "admin")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPromotionFailed.Code, appErr.Code)
	assert.Equal(t, "unknown", appErr.Details["state_changed"])
	assert.Equal(t, []string{"X"}, fx.backend.currentIDs())
	require.Len(t, fx.reporter.errs, 1)
	assert.Equal(t, []string{"activation:promotion_failed"}, fx.scheduler.reasons)
	assert.Equal(t, float64(1), fx.outcomeCount(models.ActivationPromotionFailed))
}

func TestActivateUnknownTargetIssuesNothing(t *testing.T) {
	fx := newActivationFixture(period("A", true, models.PeriodStatusActive))

	_, err := fx.svc.Activate(context.Background(), "missing", "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, fx.backend.updateCount())
	assert.Equal(t, []string{"A"}, fx.backend.currentIDs())
	assert.Equal(t, models.ActivationNotFound, fx.audits.records[0].Outcome)
}

func TestActivateListFailureIssuesNothing(t *testing.T) {
	fx := newActivationFixture(period("A", true, models.PeriodStatusActive))
	fx.backend.listErr = errors.New("dial tcp: connection refused")

	_, err := fx.svc.Activate(context.Background(), "A", "admin")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrBackendUnavailable.Code, appErr.Code)
	assert.Equal(t, false, appErr.Details["state_changed"])
	assert.Zero(t, fx.backend.updateCount())
	assert.Equal(t, float64(1), fx.outcomeCount(models.ActivationFetchFailed))
}

func TestActivateRejectsEmptyID(t *testing.T) {
	fx := newActivationFixture()

	_, err := fx.svc.Activate(context.Background(), "  ", "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, fx.backend.listCalls)
	assert.Empty(t, fx.audits.records)
	assert.Equal(t, float64(1), fx.outcomeCount(models.ActivationRejected))
}

func TestActivateCompletesAfterCallerCancels(t *testing.T) {
	fx := newActivationFixture(
		period("A", true, models.PeriodStatusActive),
		period("B", false, models.PeriodStatusUpcoming),
	)
	ctx, cancel := context.WithCancel(context.Background())
	fx.backend.listHook = cancel

	activated, err := fx.svc.Activate(ctx, "B", "admin")
	require.NoError(t, err)
	assert.Equal(t, "B", activated.ID)
	assert.Equal(t, []string{"B"}, fx.backend.currentIDs())
}

func TestActivateAuditFailureDoesNotFailActivation(t *testing.T) {
	fx := newActivationFixture(period("A", false, models.PeriodStatusUpcoming))
	fx.audits.err = errors.New("db down")

	_, err := fx.svc.Activate(context.Background(), "A", "admin")
	require.NoError(t, err)
}

func TestActivationHistory(t *testing.T) {
	fx := newActivationFixture(period("A", false, models.PeriodStatusUpcoming))
	_, err := fx.svc.Activate(context.Background(), "A", "admin")
	require.NoError(t, err)

	history, err := fx.svc.History(context.Background(), "A", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ActivationSucceeded, history[0].Outcome)

	disabled := NewPeriodActivationService(fx.svc.periods, ActivationDeps{}, nil)
	_, err = disabled.History(context.Background(), "A", 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
