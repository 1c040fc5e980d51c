package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portal/internal/apperr"
	"portal/internal/identity"
	"portal/internal/logger"
)

const actorKey = "actor"

// ActorLoader resolves the caller behind a token.
type ActorLoader interface {
	LookupActor(ctx context.Context, userID int64) (identity.Actor, error)
}

// tokenFrom reads a bearer token or the x-access-token header.
func tokenFrom(c *gin.Context) string {
	if authz := c.GetHeader("Authorization"); len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return strings.TrimSpace(c.GetHeader("x-access-token"))
}

// Authenticate validates the token and stores the caller's actor on the context.
func Authenticate(signingKey, issuer string, users ActorLoader) gin.HandlerFunc {
	log := logger.With("auth")
	return func(c *gin.Context) {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			unauthorized(c, "missing access token")
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}
		actor, err := users.LookupActor(c.Request.Context(), userID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			unauthorized(c, "unknown user")
			return
		case err != nil:
			log.Error().Err(err).Int64("user_id", userID).Msg("actor lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal", "message": "internal server error"}})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by Authenticate.
func ActorFrom(c *gin.Context) (identity.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return identity.Actor{}, false
	}
	actor, ok := v.(identity.Actor)
	return actor, ok
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "unauthenticated", "message": msg}})
}
