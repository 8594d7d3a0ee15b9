package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/dto"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/middleware"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	appErrors "github.com/MVitabar/Notas-Frontend-sub001/pkg/errors"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/response"
)

type academicPeriodService interface {
	List(ctx context.Context, filter models.AcademicPeriodFilter) ([]models.AcademicPeriod, *models.Pagination, bool, error)
	Get(ctx context.Context, id string) (*models.AcademicPeriod, error)
	GetCurrent(ctx context.Context) (*models.AcademicPeriod, error)
	Create(ctx context.Context, req dto.CreateAcademicPeriodRequest) (*models.AcademicPeriod, error)
	Update(ctx context.Context, id string, req dto.UpdateAcademicPeriodRequest) (*models.AcademicPeriod, error)
	Delete(ctx context.Context, id string) error
}

type periodActivationService interface {
	Activate(ctx context.Context, targetID, actorID string) (*models.AcademicPeriod, error)
	History(ctx context.Context, periodID string, limit int) ([]models.ActivationAudit, error)
}

type periodExportService interface {
	ExportPeriods(ctx context.Context, filter models.AcademicPeriodFilter, format dto.PeriodExportFormat) (*dto.PeriodExportFile, error)
}

// AcademicPeriodHandler exposes academic period endpoints.
type AcademicPeriodHandler struct {
	periods     academicPeriodService
	activations periodActivationService
	exports     periodExportService
}

// NewAcademicPeriodHandler constructs an academic period handler.
func NewAcademicPeriodHandler(periods academicPeriodService, activations periodActivationService, exports periodExportService) *AcademicPeriodHandler {
	return &AcademicPeriodHandler{periods: periods, activations: activations, exports: exports}
}

// List godoc
// @Summary List academic periods
// @Description List academic periods with filters; the collection is cached when enabled
// @Tags AcademicPeriods
// @Produce json
// @Param search query string false "Name contains"
// @Param status query string false "Filter by status"
// @Param isCurrent query bool false "Filter by current flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "name|startDate|endDate|status"
// @Param order query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /academic-periods [get]
func (h *AcademicPeriodHandler) List(c *gin.Context) {
	periods, pagination, cacheHit, err := h.periods.List(c.Request.Context(), periodFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, periods, pagination, middleware.ExtractMeta(c))
}

// GetCurrent godoc
// @Summary Get current academic period
// @Tags AcademicPeriods
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic-periods/current [get]
func (h *AcademicPeriodHandler) GetCurrent(c *gin.Context) {
	period, err := h.periods.GetCurrent(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Get godoc
// @Summary Get academic period
// @Tags AcademicPeriods
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic-periods/{id} [get]
func (h *AcademicPeriodHandler) Get(c *gin.Context) {
	period, err := h.periods.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Create godoc
// @Summary Create academic period
// @Description New periods are never current; use the activate endpoint
// @Tags AcademicPeriods
// @Accept json
// @Produce json
// @Param payload body dto.CreateAcademicPeriodRequest true "Period payload"
// @Success 201 {object} response.Envelope
// @Router /academic-periods [post]
func (h *AcademicPeriodHandler) Create(c *gin.Context) {
	var req dto.CreateAcademicPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := h.periods.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// Update godoc
// @Summary Update academic period
// @Tags AcademicPeriods
// @Accept json
// @Produce json
// @Param id path string true "Period ID"
// @Param payload body dto.UpdateAcademicPeriodRequest true "Partial period payload"
// @Success 200 {object} response.Envelope
// @Router /academic-periods/{id} [put]
func (h *AcademicPeriodHandler) Update(c *gin.Context) {
	var req dto.UpdateAcademicPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := h.periods.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Activate godoc
// @Summary Activate academic period
// @Description Demotes every other current period, then makes this one current
// @Tags AcademicPeriods
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /academic-periods/{id}/activate [post]
func (h *AcademicPeriodHandler) Activate(c *gin.Context) {
	period, err := h.activations.Activate(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Activations godoc
// @Summary List activation attempts for a period
// @Tags AcademicPeriods
// @Produce json
// @Param id path string true "Period ID"
// @Param limit query int false "Max records (default 20, max 100)"
// @Success 200 {object} response.Envelope
// @Router /academic-periods/{id}/activations [get]
func (h *AcademicPeriodHandler) Activations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	audits, err := h.activations.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, audits, nil)
}

// Delete godoc
// @Summary Delete academic period
// @Tags AcademicPeriods
// @Param id path string true "Period ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /academic-periods/{id} [delete]
func (h *AcademicPeriodHandler) Delete(c *gin.Context) {
	if err := h.periods.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export academic periods
// @Tags AcademicPeriods
// @Produce octet-stream
// @Param format query string false "csv|pdf|xlsx"
// @Param status query string false "Filter by status"
// @Success 200 {file} file
// @Router /academic-periods/export [get]
func (h *AcademicPeriodHandler) Export(c *gin.Context) {
	format := dto.PeriodExportFormat(c.DefaultQuery("format", string(dto.PeriodExportCSV)))
	file, err := h.exports.ExportPeriods(c.Request.Context(), periodFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
