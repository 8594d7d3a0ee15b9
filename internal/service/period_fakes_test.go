package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	appErrors "github.com/MVitabar/Notas-Frontend-sub001/pkg/errors"
)

type periodUpdateCall struct {
	id    string
	patch models.AcademicPeriodPatch
}

// fakePeriodBackend is an in-memory stand-in for the backend period resource.
type fakePeriodBackend struct {
	mu        sync.Mutex
	periods   map[string]models.AcademicPeriod
	order     []string
	listErr   error
	listHook  func()
	updateErr map[string]error
	// applyErr errors are returned after the patch has been applied
	applyErr  map[string]error
	noData    map[string]bool
	createErr error
	deleteErr error
	updates   []periodUpdateCall
	created   []models.NewAcademicPeriod
	deleted   []string
	listCalls int
}

func newFakePeriodBackend(periods ...models.AcademicPeriod) *fakePeriodBackend {
	f := &fakePeriodBackend{
		periods:   make(map[string]models.AcademicPeriod),
		updateErr: make(map[string]error),
		applyErr:  make(map[string]error),
		noData:    make(map[string]bool),
	}
	for _, p := range periods {
		f.periods[p.ID] = p
		f.order = append(f.order, p.ID)
	}
	return f
}

func unavailable(id string) error {
	return fmt.Errorf("update academic period %s: %w", id, appErrors.Clone(appErrors.ErrBackendUnavailable, "backend responded with status 503"))
}

func conflict(id string) error {
	return fmt.Errorf("update academic period %s: %w", id, appErrors.Clone(appErrors.ErrConflict, "period is locked"))
}

func (f *fakePeriodBackend) List(ctx context.Context) ([]models.AcademicPeriod, error) {
	f.mu.Lock()
	f.listCalls++
	hook := f.listHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.AcademicPeriod, 0, len(f.order))
	for _, id := range f.order {
		if p, ok := f.periods[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePeriodBackend) FindCurrent(ctx context.Context) (*models.AcademicPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		if p, ok := f.periods[id]; ok && p.IsCurrent {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePeriodBackend) FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.periods[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic period not found")
	}
	return &p, nil
}

func (f *fakePeriodBackend) Create(ctx context.Context, period models.NewAcademicPeriod) (*models.AcademicPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, period)
	p := models.AcademicPeriod{
		ID:          fmt.Sprintf("new-%d", len(f.created)),
		Name:        period.Name,
		StartDate:   period.StartDate,
		EndDate:     period.EndDate,
		Status:      period.Status,
		Description: period.Description,
	}
	f.periods[p.ID] = p
	f.order = append(f.order, p.ID)
	return &p, nil
}

func (f *fakePeriodBackend) Update(ctx context.Context, id string, patch models.AcademicPeriodPatch) (*models.AcademicPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, periodUpdateCall{id: id, patch: patch})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.updateErr[id]; err != nil {
		return nil, err
	}
	p, ok := f.periods[id]
	if !ok || f.noData[id] {
		return nil, nil
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.StartDate != nil {
		p.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		p.EndDate = *patch.EndDate
	}
	if patch.IsCurrent != nil {
		p.IsCurrent = *patch.IsCurrent
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	f.periods[id] = p
	if err := f.applyErr[id]; err != nil {
		return nil, err
	}
	return &p, nil
}

func (f *fakePeriodBackend) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.periods, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePeriodBackend) get(id string) models.AcademicPeriod {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.periods[id]
}

func (f *fakePeriodBackend) currentIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, p := range f.periods {
		if p.IsCurrent {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// updatesMatching returns the ids of every update issued with the given isCurrent value.
func (f *fakePeriodBackend) updatesMatching(isCurrent bool) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, call := range f.updates {
		if call.patch.IsCurrent != nil && *call.patch.IsCurrent == isCurrent {
			ids = append(ids, call.id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (f *fakePeriodBackend) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}
