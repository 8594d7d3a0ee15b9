package repository

import (
	"context"
	"fmt"
	"net/url"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/backend"
)

const periodsPath = "/academic-periods"

type backendClient interface {
	Get(ctx context.Context, path string, dest interface{}) (bool, error)
	Post(ctx context.Context, path string, body, dest interface{}) (bool, error)
	Put(ctx context.Context, path string, body, dest interface{}) (bool, error)
	Delete(ctx context.Context, path string) error
}

// AcademicPeriodRepository reads and writes academic periods through the backend REST API.
// The backend is the system of record; nothing is stored locally.
type AcademicPeriodRepository struct {
	client backendClient
}

// NewAcademicPeriodRepository instantiates the repository.
func NewAcademicPeriodRepository(client backendClient) *AcademicPeriodRepository {
	return &AcademicPeriodRepository{client: client}
}

// List returns the full period collection as a single snapshot.
func (r *AcademicPeriodRepository) List(ctx context.Context) ([]models.AcademicPeriod, error) {
	var periods []models.AcademicPeriod
	if _, err := r.client.Get(ctx, periodsPath, &periods); err != nil {
		return nil, fmt.Errorf("list academic periods: %w", err)
	}
	if periods == nil {
		periods = []models.AcademicPeriod{}
	}
	return periods, nil
}

// FindCurrent returns the period flagged current, or nil when the backend has none.
func (r *AcademicPeriodRepository) FindCurrent(ctx context.Context) (*models.AcademicPeriod, error) {
	var period models.AcademicPeriod
	found, err := r.client.Get(ctx, periodsPath+"/current", &period)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find current academic period: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &period, nil
}

// FindByID loads a period; a missing record surfaces as the backend's not-found error.
func (r *AcademicPeriodRepository) FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error) {
	var period models.AcademicPeriod
	found, err := r.client.Get(ctx, periodPath(id), &period)
	if err != nil {
		return nil, fmt.Errorf("find academic period %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &period, nil
}

// Create posts a new period and returns the stored record.
func (r *AcademicPeriodRepository) Create(ctx context.Context, period models.NewAcademicPeriod) (*models.AcademicPeriod, error) {
	var created models.AcademicPeriod
	found, err := r.client.Post(ctx, periodsPath, period, &created)
	if err != nil {
		return nil, fmt.Errorf("create academic period: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &created, nil
}

// Update applies a partial update. It returns nil without error when the backend reports
// no data, either as an empty body or a 404.
func (r *AcademicPeriodRepository) Update(ctx context.Context, id string, patch models.AcademicPeriodPatch) (*models.AcademicPeriod, error) {
	var updated models.AcademicPeriod
	found, err := r.client.Put(ctx, periodPath(id), patch, &updated)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("update academic period %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &updated, nil
}

// Delete removes a period.
func (r *AcademicPeriodRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, periodPath(id)); err != nil {
		return fmt.Errorf("delete academic period %s: %w", id, err)
	}
	return nil
}

func periodPath(id string) string {
	return periodsPath + "/" + url.PathEscape(id)
}
