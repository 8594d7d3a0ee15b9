package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/backend"
	appErrors "github.com/MVitabar/Notas-Frontend-sub001/pkg/errors"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// JWT requires a bearer token, stores its claims for RBAC and forwards the raw token to
// backend calls made with the request context.
func JWT(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		raw := strings.TrimSpace(parts[1])
		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Request = c.Request.WithContext(backend.WithToken(c.Request.Context(), raw))
		c.Next()
	}
}

// Claims returns the JWT claims stored by JWT, or nil.
func Claims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}
