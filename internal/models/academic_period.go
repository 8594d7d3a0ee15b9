package models

import "time"

// PeriodStatus is the lifecycle state of an academic period.
type PeriodStatus string

const (
	PeriodStatusUpcoming  PeriodStatus = "upcoming"
	PeriodStatusActive    PeriodStatus = "active"
	PeriodStatusCompleted PeriodStatus = "completed"
	PeriodStatusCancelled PeriodStatus = "cancelled"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s PeriodStatus) Valid() bool {
	switch s {
	case PeriodStatusUpcoming, PeriodStatusActive, PeriodStatusCompleted, PeriodStatusCancelled:
		return true
	}
	return false
}

// AcademicPeriod mirrors the backend record for a grading period (school year, bimester...).
// Dates stay as ISO-8601 strings because the backend owns their representation.
type AcademicPeriod struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	StartDate   string       `json:"startDate"`
	EndDate     string       `json:"endDate"`
	IsCurrent   bool         `json:"isCurrent"`
	Status      PeriodStatus `json:"status"`
	Description *string      `json:"description,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
}

// AcademicPeriodPatch is a partial update; nil fields are left untouched by the backend.
type AcademicPeriodPatch struct {
	Name        *string       `json:"name,omitempty"`
	StartDate   *string       `json:"startDate,omitempty"`
	EndDate     *string       `json:"endDate,omitempty"`
	IsCurrent   *bool         `json:"isCurrent,omitempty"`
	Status      *PeriodStatus `json:"status,omitempty"`
	Description *string       `json:"description,omitempty"`
}

// DemotionPatch moves a period out of the current slot.
func DemotionPatch() AcademicPeriodPatch {
	status := PeriodStatusCancelled
	current := false
	return AcademicPeriodPatch{Status: &status, IsCurrent: &current}
}

// PromotionPatch moves a period into the current slot.
func PromotionPatch() AcademicPeriodPatch {
	status := PeriodStatusActive
	current := true
	return AcademicPeriodPatch{Status: &status, IsCurrent: &current}
}

// NewAcademicPeriod is the create payload forwarded to the backend.
type NewAcademicPeriod struct {
	Name        string       `json:"name"`
	StartDate   string       `json:"startDate"`
	EndDate     string       `json:"endDate"`
	Status      PeriodStatus `json:"status"`
	Description *string      `json:"description,omitempty"`
}

// AcademicPeriodFilter narrows list results.
type AcademicPeriodFilter struct {
	Search    string
	Status    PeriodStatus
	IsCurrent *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
