package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/dto"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	appErrors "github.com/MVitabar/Notas-Frontend-sub001/pkg/errors"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/export"
)

type periodSource interface {
	Snapshot(ctx context.Context) ([]models.AcademicPeriod, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

var periodExportHeaders = []string{"Name", "Start Date", "End Date", "Status", "Current"}

// ExportService renders the academic period list as a downloadable file.
type ExportService struct {
	periods   periodSource
	renderers map[dto.PeriodExportFormat]datasetRenderer
	now       func() time.Time
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the CSV, PDF and XLSX renderers.
func NewExportService(periods periodSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		periods: periods,
		renderers: map[dto.PeriodExportFormat]datasetRenderer{
			dto.PeriodExportCSV:  export.NewCSVExporter(),
			dto.PeriodExportPDF:  export.NewPDFExporter(),
			dto.PeriodExportXLSX: export.NewXLSXExporter(),
		},
		now:    time.Now,
		logger: logger,
	}
}

// ExportPeriods renders every period matching filter from a single backend snapshot.
// Pagination in filter is ignored.
func (s *ExportService) ExportPeriods(ctx context.Context, filter models.AcademicPeriodFilter, format dto.PeriodExportFormat) (*dto.PeriodExportFile, error) {
	format = dto.PeriodExportFormat(strings.ToLower(string(format)))
	if format == "" {
		format = dto.PeriodExportCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	dataset, err := s.buildDataset(ctx, filter)
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(dataset)
	if err != nil {
		s.logger.Error("failed to render period export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &dto.PeriodExportFile{
		Filename:    fmt.Sprintf("academic-periods-%s.%s", s.now().UTC().Format("20060102-150405"), format),
		ContentType: exportContentType(format),
		Content:     payload,
	}, nil
}

func (s *ExportService) buildDataset(ctx context.Context, filter models.AcademicPeriodFilter) (export.Dataset, error) {
	periods, err := s.periods.Snapshot(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	periods = filterPeriods(periods, filter)
	sortPeriods(periods, filter.SortBy, filter.SortOrder)

	rows := make([][]string, 0, len(periods))
	for _, p := range periods {
		current := "no"
		if p.IsCurrent {
			current = "yes"
		}
		rows = append(rows, []string{p.Name, displayDate(p.StartDate), displayDate(p.EndDate), string(p.Status), current})
	}
	return export.Dataset{Title: "Academic Periods", Headers: periodExportHeaders, Rows: rows}, nil
}

func displayDate(raw string) string {
	t, err := parsePeriodDate(raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}

func exportContentType(format dto.PeriodExportFormat) string {
	switch format {
	case dto.PeriodExportPDF:
		return "application/pdf"
	case dto.PeriodExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}
