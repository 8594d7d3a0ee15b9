package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/middleware"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
)

func actorID(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func periodFilterFromQuery(c *gin.Context) models.AcademicPeriodFilter {
	var filter models.AcademicPeriodFilter
	filter.Search = c.Query("search")
	if status := c.Query("status"); status != "" {
		filter.Status = models.PeriodStatus(status)
	}
	if isCurrent := c.Query("isCurrent"); isCurrent != "" {
		if val, err := strconv.ParseBool(isCurrent); err == nil {
			filter.IsCurrent = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
