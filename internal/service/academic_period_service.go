package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/dto"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	appErrors "github.com/MVitabar/Notas-Frontend-sub001/pkg/errors"
)

const (
	periodCacheListKey = "academic-periods:list"
	periodCachePattern = "academic-periods:*"
)

type academicPeriodRepository interface {
	List(ctx context.Context) ([]models.AcademicPeriod, error)
	FindCurrent(ctx context.Context) (*models.AcademicPeriod, error)
	FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error)
	Create(ctx context.Context, period models.NewAcademicPeriod) (*models.AcademicPeriod, error)
	Update(ctx context.Context, id string, patch models.AcademicPeriodPatch) (*models.AcademicPeriod, error)
	Delete(ctx context.Context, id string) error
}

// AcademicPeriodService orchestrates period reads and writes against the backend.
type AcademicPeriodService struct {
	repo      academicPeriodRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicPeriodService creates a new academic period service instance.
func NewAcademicPeriodService(repo academicPeriodRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AcademicPeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicPeriodService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns periods filtered, sorted and paginated from the backend collection. The bool
// reports whether the collection came from cache.
func (s *AcademicPeriodService) List(ctx context.Context, filter models.AcademicPeriodFilter) ([]models.AcademicPeriod, *models.Pagination, bool, error) {
	var periods []models.AcademicPeriod
	cacheHit := s.cache.Get(ctx, periodCacheListKey, &periods)
	if !cacheHit {
		fresh, err := s.Snapshot(ctx)
		if err != nil {
			return nil, nil, false, err
		}
		periods = fresh
		s.cache.Set(ctx, periodCacheListKey, periods, 0)
	}

	filtered := filterPeriods(periods, filter)
	sortPeriods(filtered, filter.SortBy, filter.SortOrder)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	total := len(filtered)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return filtered[start:end], pagination, cacheHit, nil
}

// Snapshot fetches the full collection directly from the backend, bypassing the cache.
func (s *AcademicPeriodService) Snapshot(ctx context.Context) ([]models.AcademicPeriod, error) {
	periods, err := s.repo.List(ctx)
	if err != nil {
		return nil, backendError(err, "failed to list academic periods")
	}
	return periods, nil
}

// Get returns a period by ID.
func (s *AcademicPeriodService) Get(ctx context.Context, id string) (*models.AcademicPeriod, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period id is required")
	}
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, backendError(err, "failed to load academic period")
	}
	if period == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic period not found")
	}
	return period, nil
}

// GetCurrent returns the period flagged current.
func (s *AcademicPeriodService) GetCurrent(ctx context.Context) (*models.AcademicPeriod, error) {
	period, err := s.repo.FindCurrent(ctx)
	if err != nil {
		return nil, backendError(err, "failed to load current academic period")
	}
	if period == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "current period not found")
	}
	return period, nil
}

// Create adds a new, non-current period.
func (s *AcademicPeriodService) Create(ctx context.Context, req dto.CreateAcademicPeriodRequest) (*models.AcademicPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic period payload")
	}
	if req.IsCurrent || req.Status == models.PeriodStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new periods cannot be current; use the activate endpoint")
	}

	startDate, err := NormalizePeriodDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	endDate, err := NormalizePeriodDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate")
	}
	if startDate > endDate {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must not be after endDate")
	}

	status := req.Status
	if status == "" {
		status = models.PeriodStatusUpcoming
	}

	created, err := s.repo.Create(ctx, models.NewAcademicPeriod{
		Name:        strings.TrimSpace(req.Name),
		StartDate:   startDate,
		EndDate:     endDate,
		Status:      status,
		Description: req.Description,
	})
	if err != nil {
		return nil, backendError(err, "failed to create academic period")
	}
	s.invalidate(ctx)
	if created == nil {
		return nil, appErrors.Clone(appErrors.ErrBackendUnavailable, "backend returned no academic period")
	}
	s.logger.Info("academic period created", zap.String("period_id", created.ID))
	return created, nil
}

// UpdatePeriod sends a partial update, normalising any dates first. It returns nil without
// error when the backend reports no data for the period.
func (s *AcademicPeriodService) UpdatePeriod(ctx context.Context, id string, patch models.AcademicPeriodPatch) (*models.AcademicPeriod, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period id is required")
	}
	if patch.StartDate != nil {
		normalized, err := NormalizePeriodDate(*patch.StartDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
		}
		patch.StartDate = &normalized
	}
	if patch.EndDate != nil {
		normalized, err := NormalizePeriodDate(*patch.EndDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate")
		}
		patch.EndDate = &normalized
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status")
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, backendError(err, "failed to update academic period")
	}
	s.invalidate(ctx)
	return updated, nil
}

// Update applies a user edit. Promotion to current goes through activation only.
func (s *AcademicPeriodService) Update(ctx context.Context, id string, req dto.UpdateAcademicPeriodRequest) (*models.AcademicPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic period payload")
	}
	if (req.IsCurrent != nil && *req.IsCurrent) || (req.Status != nil && *req.Status == models.PeriodStatusActive) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "use the activate endpoint to make a period current")
	}
	if req.StartDate != nil && req.EndDate != nil {
		start, startErr := parsePeriodDate(*req.StartDate)
		end, endErr := parsePeriodDate(*req.EndDate)
		if startErr == nil && endErr == nil && start.After(end) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must not be after endDate")
		}
	}

	patch := models.AcademicPeriodPatch{
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsCurrent:   req.IsCurrent,
		Status:      req.Status,
		Description: req.Description,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}

	updated, err := s.UpdatePeriod(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic period not found")
	}
	return updated, nil
}

// Delete removes a period unless it is the current one.
func (s *AcademicPeriodService) Delete(ctx context.Context, id string) error {
	period, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if period.IsCurrent {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete the current period")
	}
	if err := s.repo.Delete(ctx, period.ID); err != nil {
		return backendError(err, "failed to delete academic period")
	}
	s.invalidate(ctx)
	return nil
}

func (s *AcademicPeriodService) invalidate(ctx context.Context) {
	s.cache.Invalidate(context.WithoutCancel(ctx), periodCachePattern)
}

// backendError keeps client-facing backend errors intact and maps the rest to BACKEND_UNAVAILABLE.
func backendError(err error, message string) *appErrors.Error {
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrNotFound.Code,
		appErrors.ErrValidation.Code,
		appErrors.ErrConflict.Code,
		appErrors.ErrUnauthorized.Code,
		appErrors.ErrForbidden.Code,
		appErrors.ErrBackendUnavailable.Code:
		out := appErrors.Clone(appErr, "")
		out.Err = err
		if appErr.Code == appErrors.ErrBackendUnavailable.Code {
			out.Message = message
		}
		return out
	}
	return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, message)
}

func filterPeriods(periods []models.AcademicPeriod, filter models.AcademicPeriodFilter) []models.AcademicPeriod {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]models.AcademicPeriod, 0, len(periods))
	for _, p := range periods {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.IsCurrent != nil && p.IsCurrent != *filter.IsCurrent {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortPeriods(periods []models.AcademicPeriod, sortBy, order string) {
	desc := !strings.EqualFold(order, "asc")
	if sortBy == "" {
		sortBy = "startDate"
	} else if order == "" {
		desc = false
	}

	less := func(a, b models.AcademicPeriod) bool {
		switch sortBy {
		case "name":
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case "status":
			return a.Status < b.Status
		case "endDate":
			return dateBefore(a.EndDate, b.EndDate)
		default:
			return dateBefore(a.StartDate, b.StartDate)
		}
	}
	sort.SliceStable(periods, func(i, j int) bool {
		if desc {
			return less(periods[j], periods[i])
		}
		return less(periods[i], periods[j])
	})
}

func dateBefore(a, b string) bool {
	ta, errA := parsePeriodDate(a)
	tb, errB := parsePeriodDate(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return ta.Before(tb)
}
