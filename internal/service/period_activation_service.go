package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	appErrors "github.com/MVitabar/Notas-Frontend-sub001/pkg/errors"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/logger"
)

type periodWorkflow interface {
	Snapshot(ctx context.Context) ([]models.AcademicPeriod, error)
	UpdatePeriod(ctx context.Context, id string, patch models.AcademicPeriodPatch) (*models.AcademicPeriod, error)
}

type activationAuditStore interface {
	Create(ctx context.Context, audit *models.ActivationAudit) error
	ListByPeriod(ctx context.Context, periodID string, limit int) ([]models.ActivationAudit, error)
}

type invariantScheduler interface {
	Schedule(ctx context.Context, reason string)
}

type errorReporter interface {
	CaptureError(err error, tags map[string]string)
}

// PeriodActivationService makes one period current while demoting every other current period.
type PeriodActivationService struct {
	periods  periodWorkflow
	audits   activationAuditStore
	checks   invariantScheduler
	reporter errorReporter
	metrics  *MetricsService
	logger   *zap.Logger
}

// ActivationDeps groups optional collaborators of the activation workflow.
type ActivationDeps struct {
	Audits   activationAuditStore
	Checks   invariantScheduler
	Reporter errorReporter
	Metrics  *MetricsService
}

// NewPeriodActivationService wires the workflow. Nil collaborators are skipped.
func NewPeriodActivationService(periods periodWorkflow, deps ActivationDeps, logger *zap.Logger) *PeriodActivationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodActivationService{
		periods:  periods,
		audits:   deps.Audits,
		checks:   deps.Checks,
		reporter: deps.Reporter,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

type activationAttempt struct {
	targetID  string
	actorID   string
	startedAt time.Time
	demoted   []string
	failed    []string
	// failures the backend may still have applied
	unconfirmed []string
}

// Activate promotes targetID to the single current period. Other current periods are demoted
// concurrently first; the target is only promoted when every demotion succeeded.
func (s *PeriodActivationService) Activate(ctx context.Context, targetID, actorID string) (*models.AcademicPeriod, error) {
	attempt := &activationAttempt{
		targetID:  strings.TrimSpace(targetID),
		actorID:   actorID,
		startedAt: time.Now().UTC(),
	}
	if attempt.targetID == "" {
		err := appErrors.Clone(appErrors.ErrValidation, "period id is required")
		s.finish(ctx, attempt, models.ActivationRejected, err)
		return nil, err
	}

	periods, err := s.periods.Snapshot(ctx)
	if err != nil {
		appErr := backendError(err, "failed to load academic periods").WithDetails(map[string]interface{}{"state_changed": false})
		s.finish(ctx, attempt, models.ActivationFetchFailed, appErr)
		return nil, appErr
	}

	if !containsPeriod(periods, attempt.targetID) {
		appErr := appErrors.Clone(appErrors.ErrNotFound, "academic period not found")
		s.finish(ctx, attempt, models.ActivationNotFound, appErr)
		return nil, appErr
	}

	// Mutations must all be issued and joined even if the caller goes away.
	mutationCtx := context.WithoutCancel(ctx)

	demoteErr := s.demote(mutationCtx, attempt, currentHolders(periods, attempt.targetID))
	if demoteErr != nil {
		if len(attempt.demoted) == 0 && len(attempt.unconfirmed) == 0 {
			appErr := backendError(demoteErr, "failed to demote the current period; no changes were applied").
				WithDetails(map[string]interface{}{
					"state_changed": false,
					"failed_ids":    attempt.failed,
				})
			s.finish(ctx, attempt, models.ActivationDemotionFailed, appErr)
			return nil, appErr
		}
		message := appErrors.ErrPartialDemotion.Message
		if len(attempt.demoted) == 0 {
			message = "current period demotion did not confirm; state unknown, please verify"
		}
		appErr := appErrors.Wrap(demoteErr, appErrors.ErrPartialDemotion.Code, appErrors.ErrPartialDemotion.Status, message).
			WithDetails(map[string]interface{}{
				"state_changed":   stateChangedDetail(len(attempt.demoted) > 0),
				"target_id":       attempt.targetID,
				"demoted_ids":     attempt.demoted,
				"failed_ids":      attempt.failed,
				"unconfirmed_ids": attempt.unconfirmed,
			})
		s.finish(ctx, attempt, models.ActivationPartialDemotion, appErr)
		return nil, appErr
	}

	promoted, err := s.periods.UpdatePeriod(mutationCtx, attempt.targetID, models.PromotionPatch())
	if err == nil && promoted == nil {
		err = appErrors.Clone(appErrors.ErrNotFound, "academic period not found")
	}
	if err != nil {
		if len(attempt.demoted) == 0 && rejectedByBackend(err) {
			appErr := backendError(err, "failed to activate academic period").
				WithDetails(map[string]interface{}{"state_changed": false})
			s.finish(ctx, attempt, models.ActivationFailed, appErr)
			return nil, appErr
		}
		message := appErrors.ErrPromotionFailed.Message
		if len(attempt.demoted) == 0 {
			message = "target promotion did not confirm; state unknown, please verify"
		}
		appErr := appErrors.Wrap(err, appErrors.ErrPromotionFailed.Code, appErrors.ErrPromotionFailed.Status, message).
			WithDetails(map[string]interface{}{
				"state_changed": stateChangedDetail(len(attempt.demoted) > 0),
				"target_id":     attempt.targetID,
				"demoted_ids":   attempt.demoted,
			})
		s.finish(ctx, attempt, models.ActivationPromotionFailed, appErr)
		return nil, appErr
	}

	s.finish(ctx, attempt, models.ActivationSucceeded, nil)
	return promoted, nil
}

// History lists recorded activation attempts for a period, newest first.
func (s *PeriodActivationService) History(ctx context.Context, periodID string, limit int) ([]models.ActivationAudit, error) {
	if s.audits == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "activation audit is disabled")
	}
	periodID = strings.TrimSpace(periodID)
	if periodID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period id is required")
	}
	audits, err := s.audits.ListByPeriod(ctx, periodID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activation history")
	}
	return audits, nil
}

type demotionResult struct {
	id  string
	err error
}

// demote issues every demotion in parallel and waits for all of them. Results are accounted
// per period on the attempt; the returned error aggregates every failure.
func (s *PeriodActivationService) demote(ctx context.Context, attempt *activationAttempt, holders []models.AcademicPeriod) error {
	if len(holders) == 0 {
		return nil
	}

	results := make([]demotionResult, len(holders))
	var wg sync.WaitGroup
	for i, holder := range holders {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			updated, err := s.periods.UpdatePeriod(ctx, id, models.DemotionPatch())
			if err == nil && updated == nil {
				err = appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("academic period %s not found", id))
			}
			results[i] = demotionResult{id: id, err: err}
		}(i, holder.ID)
	}
	wg.Wait()

	var errs error
	for _, result := range results {
		if result.err != nil {
			attempt.failed = append(attempt.failed, result.id)
			if !rejectedByBackend(result.err) {
				attempt.unconfirmed = append(attempt.unconfirmed, result.id)
			}
			errs = multierr.Append(errs, fmt.Errorf("demote %s: %w", result.id, result.err))
			s.logger.Warn("period demotion failed",
				zap.String("period_id", result.id),
				zap.String("target_id", attempt.targetID),
				zap.Error(result.err),
			)
			continue
		}
		attempt.demoted = append(attempt.demoted, result.id)
	}
	return errs
}

func (s *PeriodActivationService) finish(ctx context.Context, attempt *activationAttempt, outcome models.ActivationOutcome, err error) {
	s.metrics.RecordActivation(outcome, len(attempt.demoted), len(attempt.failed))

	log := logger.WithContext(s.logger, ctx)
	fields := []zap.Field{
		zap.String("target_id", attempt.targetID),
		zap.String("outcome", string(outcome)),
		zap.Strings("demoted_ids", attempt.demoted),
		zap.Strings("failed_ids", attempt.failed),
	}
	switch {
	case err == nil:
		log.Info("academic period activated", fields...)
	case outcome.StateChanged():
		log.Error("academic period activation left partial state", append(fields, zap.Error(err))...)
		if s.reporter != nil {
			s.reporter.CaptureError(err, map[string]string{
				"component": "period_activation",
				"outcome":   string(outcome),
				"target_id": attempt.targetID,
			})
		}
	default:
		log.Warn("academic period activation failed", append(fields, zap.Error(err))...)
	}

	detached := context.WithoutCancel(ctx)
	if s.audits != nil && attempt.targetID != "" {
		audit := &models.ActivationAudit{
			PeriodID:   attempt.targetID,
			Outcome:    outcome,
			DemotedIDs: models.StringList(attempt.demoted),
			FailedIDs:  models.StringList(attempt.failed),
			StartedAt:  attempt.startedAt,
			FinishedAt: time.Now().UTC(),
		}
		if attempt.actorID != "" {
			actor := attempt.actorID
			audit.ActorID = &actor
		}
		if err != nil {
			message := err.Error()
			audit.ErrorMessage = &message
		}
		if auditErr := s.audits.Create(detached, audit); auditErr != nil {
			log.Warn("failed to record activation audit", zap.String("target_id", attempt.targetID), zap.Error(auditErr))
		}
	}

	if s.checks != nil && (outcome.StateChanged() || len(attempt.demoted) > 0) {
		s.checks.Schedule(detached, "activation:"+string(outcome))
	}
}

func containsPeriod(periods []models.AcademicPeriod, id string) bool {
	for _, p := range periods {
		if p.ID == id {
			return true
		}
	}
	return false
}

// rejectedByBackend reports whether err is a definite refusal, meaning the write was not applied.
// Transport failures, 5xx and undecodable 2xx bodies leave the outcome unknown.
func rejectedByBackend(err error) bool {
	for _, code := range []string{
		appErrors.ErrNotFound.Code,
		appErrors.ErrValidation.Code,
		appErrors.ErrConflict.Code,
		appErrors.ErrUnauthorized.Code,
		appErrors.ErrForbidden.Code,
	} {
		if appErrors.HasCode(err, code) {
			return true
		}
	}
	return false
}

// stateChangedDetail is true when a write is confirmed applied and "unknown" when none is.
func stateChangedDetail(confirmed bool) interface{} {
	if confirmed {
		return true
	}
	return "unknown"
}

// currentHolders returns every period other than targetID still flagged current.
func currentHolders(periods []models.AcademicPeriod, targetID string) []models.AcademicPeriod {
	var holders []models.AcademicPeriod
	for _, p := range periods {
		if p.ID != targetID && p.IsCurrent {
			holders = append(holders, p)
		}
	}
	return holders
}
