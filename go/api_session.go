package adoptionserver

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	adoptionhttpmapper "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/http/mapper"
	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
)

// AlertFeed is the notification feed behind the session endpoints.
type AlertFeed interface {
	OpenSession(ctx context.Context, userID string) (string, error)
	CloseSession(ctx context.Context, sessionID, userID string) error
	Listen(ctx context.Context, sessionID, userID string) (<-chan types.Alert, error)
}

// SessionAPI serves notification sessions and their alert stream.
type SessionAPI struct {
	feed AlertFeed
}

// NewSessionAPI creates a SessionAPI over the feed.
func NewSessionAPI(feed AlertFeed) SessionAPI {
	return SessionAPI{feed: feed}
}

// Post /v1/sessions
// Opens a dedup session for the caller, typically at sign-in
func (api *SessionAPI) OpenSession(c *gin.Context) {
	sessionID, err := api.feed.OpenSession(c.Request.Context(), actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, adoptionhttpmapper.Session{SessionID: sessionID})
}

// Delete /v1/sessions/:sessionId
// Closes the session and forgets which alerts were shown
func (api *SessionAPI) CloseSession(c *gin.Context) {
	if err := api.feed.CloseSession(c.Request.Context(), c.Param("sessionId"), actorID(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get /v1/sessions/:sessionId/alerts
// Streams alerts as server-sent events until the client disconnects
func (api *SessionAPI) StreamAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	alerts, err := api.feed.Listen(ctx, c.Param("sessionId"), actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Stream(func(io.Writer) bool {
		select {
		case alert, ok := <-alerts:
			if !ok {
				return false
			}
			c.SSEvent("alert", adoptionhttpmapper.FromAlert(alert))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
