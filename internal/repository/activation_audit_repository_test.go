package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
)

func newAuditRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestActivationAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()
	repo := NewActivationAuditRepository(db)

	mock.ExpectExec("INSERT INTO period_activation_audits").
		WithArgs(sqlmock.AnyArg(), "B", sqlmock.AnyArg(), "partial_demotion", []byte(`["A"]`), []byte(`["C"]`), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	audit := &models.ActivationAudit{
		PeriodID:   "B",
		Outcome:    models.ActivationPartialDemotion,
		DemotedIDs: models.StringList{"A"},
		FailedIDs:  models.StringList{"C"},
	}
	require.NoError(t, repo.Create(context.Background(), audit))
	assert.NotEmpty(t, audit.ID)
	assert.False(t, audit.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivationAuditRepositoryListByPeriod(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()
	repo := NewActivationAuditRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "period_id", "actor_id", "outcome", "demoted_ids", "failed_ids", "error_message", "started_at", "finished_at"}).
		AddRow("a1", "B", "admin", "succeeded", []byte(`["A"]`), []byte(`[]`), nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, period_id, actor_id, outcome, demoted_ids, failed_ids, error_message, started_at, finished_at FROM period_activation_audits WHERE period_id = $1 ORDER BY started_at DESC LIMIT $2")).
		WithArgs("B", 20).
		WillReturnRows(rows)

	audits, err := repo.ListByPeriod(context.Background(), "B", 0)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, models.ActivationSucceeded, audits[0].Outcome)
	assert.Equal(t, models.StringList{"A"}, audits[0].DemotedIDs)
	assert.Empty(t, audits[0].FailedIDs)
	require.NotNil(t, audits[0].ActorID)
	assert.Equal(t, "admin", *audits[0].ActorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
