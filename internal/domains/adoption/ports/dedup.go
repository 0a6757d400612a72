package ports

import (
	"context"
	"errors"
)

// ErrSessionClosed indicates the dedup session was never opened or already torn down.
var ErrSessionClosed = errors.New("notification session is not open")

// DedupCache remembers which (entity, event) pairs a session already saw.
type DedupCache interface {
	// Open starts a session for userID.
	Open(ctx context.Context, sessionID, userID string) error
	// UserID returns the user that owns an open session.
	UserID(ctx context.Context, sessionID string) (string, error)
	// Seen marks the pair and reports whether it had been marked before.
	Seen(ctx context.Context, sessionID, entityID, eventType string) (bool, error)
	// Close drops every mark of the session.
	Close(ctx context.Context, sessionID string) error
}
