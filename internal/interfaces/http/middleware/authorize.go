package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/logger"
	"github.com/garmentflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActorKey is the gin context key of the resolved Actor
const ActorKey = "actor"

// ActorResolver turns a verified identity into the request's Actor
type ActorResolver interface {
	Resolve(ctx context.Context, id identity.Identity) (identity.Actor, error)
}

// RequireCapability resolves the caller's account and aborts unless it grants capability.
// It must run after Authenticate.
func RequireCapability(resolver ActorResolver, capability identity.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := GetRequestID(c)

		id, ok := GetIdentity(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthenticated, "Authentication required", requestID, nil)
			return
		}

		actor, err := resolver.Resolve(c.Request.Context(), id)
		if err == nil {
			err = actor.Authorize(capability)
		}
		if err != nil {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				abortWithError(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message, requestID, domainErr.Details)
				return
			}
			logger.L(c.Request.Context()).Error("Failed to resolve actor", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred", requestID, nil)
			return
		}

		c.Set(ActorKey, actor)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), actor.UID, string(actor.Role)))
		c.Next()
	}
}

// GetActor returns the Actor stored by RequireCapability
func GetActor(c *gin.Context) (identity.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return identity.Actor{}, false
	}
	actor, ok := v.(identity.Actor)
	return actor, ok
}

func abortWithError(c *gin.Context, status int, code, message, requestID string, details map[string]any) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, requestID, details))
}
