package models

import "time"

// ActivationOutcome classifies how an activation attempt ended.
type ActivationOutcome string

const (
	ActivationSucceeded       ActivationOutcome = "succeeded"
	ActivationRejected        ActivationOutcome = "rejected"
	ActivationNotFound        ActivationOutcome = "not_found"
	ActivationFetchFailed     ActivationOutcome = "fetch_failed"
	ActivationDemotionFailed  ActivationOutcome = "demotion_failed"
	ActivationPartialDemotion ActivationOutcome = "partial_demotion"
	ActivationPromotionFailed ActivationOutcome = "promotion_failed"
	ActivationFailed          ActivationOutcome = "failed"
)

// StateChanged reports whether the outcome may have left the backend in a different state.
func (o ActivationOutcome) StateChanged() bool {
	switch o {
	case ActivationSucceeded, ActivationPartialDemotion, ActivationPromotionFailed:
		return true
	}
	return false
}

// ActivationAudit is one recorded activation attempt.
type ActivationAudit struct {
	ID           string            `db:"id" json:"id"`
	PeriodID     string            `db:"period_id" json:"period_id"`
	ActorID      *string           `db:"actor_id" json:"actor_id,omitempty"`
	Outcome      ActivationOutcome `db:"outcome" json:"outcome"`
	DemotedIDs   StringList        `db:"demoted_ids" json:"demoted_ids"`
	FailedIDs    StringList        `db:"failed_ids" json:"failed_ids"`
	ErrorMessage *string           `db:"error_message" json:"error_message,omitempty"`
	StartedAt    time.Time         `db:"started_at" json:"started_at"`
	FinishedAt   time.Time         `db:"finished_at" json:"finished_at"`
}
