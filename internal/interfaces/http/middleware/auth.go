package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/infrastructure/auth"
	"github.com/garmentflow/backend/internal/infrastructure/logger"
	"github.com/garmentflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys for the verified caller
const (
	IdentityKey   = "identity"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// IdentityVerifier turns a bearer token into a verified identity
type IdentityVerifier interface {
	Verify(tokenString string) (identity.Identity, error)
}

// AuthConfig holds authentication middleware configuration
type AuthConfig struct {
	Verifier IdentityVerifier
	Logger   *zap.Logger
	// SkipPaths are exact request paths served without a token
	SkipPaths []string
}

// Authenticate verifies the bearer token and stores the caller identity.
// Account status and role are resolved later by the application layer.
func Authenticate(verifier IdentityVerifier, log *zap.Logger) gin.HandlerFunc {
	return AuthenticateWithConfig(AuthConfig{Verifier: verifier, Logger: log})
}

// AuthenticateWithConfig returns the authentication middleware with custom configuration
func AuthenticateWithConfig(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortUnauthenticated(c, cfg.Logger, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthenticated(c, cfg.Logger, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			abortUnauthenticated(c, cfg.Logger, auth.ErrInvalidToken, "Missing token")
			return
		}

		id, err := cfg.Verifier.Verify(token)
		if err != nil {
			abortUnauthenticated(c, cfg.Logger, err, tokenErrorMessage(err))
			return
		}

		c.Set(IdentityKey, id)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), id.UID, ""))

		c.Next()
	}
}

// GetIdentity returns the identity stored by Authenticate
func GetIdentity(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingIdentity):
		return "Token does not identify a user"
	default:
		return "Invalid token"
	}
}

func abortUnauthenticated(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("Authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeUnauthenticated, message, GetRequestID(c), nil))
}
