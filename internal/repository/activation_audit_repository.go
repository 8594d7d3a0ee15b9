package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
)

// ActivationAuditRepository persists activation attempts to Postgres.
type ActivationAuditRepository struct {
	db *sqlx.DB
}

// NewActivationAuditRepository instantiates the audit repository.
func NewActivationAuditRepository(db *sqlx.DB) *ActivationAuditRepository {
	return &ActivationAuditRepository{db: db}
}

// Create inserts one audit row, assigning an id and timestamps when missing.
func (r *ActivationAuditRepository) Create(ctx context.Context, audit *models.ActivationAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if audit.StartedAt.IsZero() {
		audit.StartedAt = now
	}
	if audit.FinishedAt.IsZero() {
		audit.FinishedAt = now
	}

	const query = `INSERT INTO period_activation_audits (id, period_id, actor_id, outcome, demoted_ids, failed_ids, error_message, started_at, finished_at) VALUES (:id, :period_id, :actor_id, :outcome, :demoted_ids, :failed_ids, :error_message, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, audit); err != nil {
		return fmt.Errorf("create activation audit: %w", err)
	}
	return nil
}

// ListByPeriod returns the most recent attempts targeting periodID.
func (r *ActivationAuditRepository) ListByPeriod(ctx context.Context, periodID string, limit int) ([]models.ActivationAudit, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, period_id, actor_id, outcome, demoted_ids, failed_ids, error_message, started_at, finished_at FROM period_activation_audits WHERE period_id = $1 ORDER BY started_at DESC LIMIT $2`
	var audits []models.ActivationAudit
	if err := r.db.SelectContext(ctx, &audits, query, periodID, limit); err != nil {
		return nil, fmt.Errorf("list activation audits: %w", err)
	}
	return audits, nil
}
