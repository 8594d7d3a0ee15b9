package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/MVitabar/Notas-Frontend-sub001/internal/models"
	appErrors "github.com/MVitabar/Notas-Frontend-sub001/pkg/errors"
)

// TokenService reads the claims of access tokens issued by the backend. With a secret the
// signature is verified; without one the backend stays the only authority and the claims are
// only decoded for role checks and audit attribution.
type TokenService struct {
	secret []byte
	now    func() time.Time
	logger *zap.Logger
}

// NewTokenService constructs a token service.
func NewTokenService(secret string, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if secret == "" {
		logger.Warn("JWT_SECRET not set; access tokens are decoded without signature verification")
	}
	return &TokenService{secret: []byte(secret), now: time.Now, logger: logger}
}

// Verifies reports whether signatures are checked.
func (s *TokenService) Verifies() bool {
	return len(s.secret) > 0
}

// ValidateToken parses an access token returning its claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing token")
	}

	claims := &models.JWTClaims{}
	if s.Verifies() {
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(s.now))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
		}
		if !token.Valid {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
		}
		if claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
			return nil, appErrors.Wrap(errors.New("token is expired"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
		}
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	claims.Role = models.UserRole(strings.ToUpper(string(claims.Role)))
	return claims, nil
}
