package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/middleware"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// Routes groups the handlers mounted under the API prefix.
type Routes struct {
	APIPrefix string
	Tokens    tokenValidator
	Periods   *AcademicPeriodHandler
	Metrics   *MetricsHandler
}

// Register mounts the public probes and the authenticated period API on r.
func (rt Routes) Register(r *gin.Engine) {
	if rt.Metrics != nil {
		r.GET("/health", rt.Metrics.Health)
		r.GET("/ready", rt.Metrics.Ready)
		r.GET("/metrics", rt.Metrics.Prometheus)
	}

	api := r.Group(rt.APIPrefix)
	api.Use(middleware.JWT(rt.Tokens))

	admin := middleware.RBAC(models.RoleAdmin)
	staff := middleware.RBAC(models.RoleAdmin, models.RoleTeacher)

	periods := api.Group("/academic-periods")
	periods.GET("", middleware.WithResponseMeta(), rt.Periods.List)
	periods.GET("/current", rt.Periods.GetCurrent)
	periods.GET("/export", staff, rt.Periods.Export)
	periods.GET("/:id", rt.Periods.Get)
	periods.GET("/:id/activations", admin, rt.Periods.Activations)
	periods.POST("", admin, rt.Periods.Create)
	periods.PUT("/:id", admin, rt.Periods.Update)
	periods.POST("/:id/activate", admin, rt.Periods.Activate)
	periods.DELETE("/:id", admin, rt.Periods.Delete)
}
