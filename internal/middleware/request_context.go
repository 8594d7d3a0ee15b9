package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/MVitabar/Notas-Frontend-sub001/pkg/backend"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/middleware/requestid"
)

// RequestContext copies the request id onto the request context so backend calls carry it.
// It must run after requestid.Middleware.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := requestid.Value(c); id != "" {
			c.Request = c.Request.WithContext(backend.WithRequestID(c.Request.Context(), id))
		}
		c.Next()
	}
}
