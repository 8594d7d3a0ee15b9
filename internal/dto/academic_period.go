package dto

import "github.com/MVitabar/Notas-Frontend-sub001/internal/models"

// CreateAcademicPeriodRequest captures POST /academic-periods payload.
type CreateAcademicPeriodRequest struct {
	Name        string              `json:"name" validate:"required,max=120"`
	StartDate   string              `json:"startDate" validate:"required"`
	EndDate     string              `json:"endDate" validate:"required"`
	Status      models.PeriodStatus `json:"status" validate:"omitempty,oneof=upcoming active completed cancelled"`
	IsCurrent   bool                `json:"isCurrent"`
	Description *string             `json:"description" validate:"omitempty,max=500"`
}

// UpdateAcademicPeriodRequest captures PUT /academic-periods/:id payload. Absent fields are kept.
type UpdateAcademicPeriodRequest struct {
	Name        *string              `json:"name" validate:"omitempty,min=1,max=120"`
	StartDate   *string              `json:"startDate"`
	EndDate     *string              `json:"endDate"`
	Status      *models.PeriodStatus `json:"status" validate:"omitempty,oneof=upcoming active completed cancelled"`
	IsCurrent   *bool                `json:"isCurrent"`
	Description *string              `json:"description" validate:"omitempty,max=500"`
}

// PeriodExportFormat selects the export renderer.
type PeriodExportFormat string

const (
	PeriodExportCSV  PeriodExportFormat = "csv"
	PeriodExportPDF  PeriodExportFormat = "pdf"
	PeriodExportXLSX PeriodExportFormat = "xlsx"
)

// PeriodExportFile is a rendered export ready to stream.
type PeriodExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
