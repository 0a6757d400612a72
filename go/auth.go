package adoptionserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the caller identity established by the upstream authenticator.
const UserIDHeader = "X-User-ID"

type ctxKey string

const actorKey ctxKey = "actor"

var errMissingUser = errors.New("missing " + UserIDHeader + " header")

// RequireUser rejects requests without an actor id and stores it on the request context.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if uid == "" {
			respondError(c, http.StatusUnauthorized, errMissingUser)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), actorKey, uid))
		c.Next()
	}
}

// ActorFromContext returns the actor id stored by RequireUser.
func ActorFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(actorKey).(string)
	return uid, ok && uid != ""
}

func actorID(c *gin.Context) string {
	uid, _ := ActorFromContext(c.Request.Context())
	return uid
}
