package memory

import (
	"context"
	"sync"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

var _ ports.DedupCache = (*DedupCache)(nil)

// DedupCache keeps per-session seen markers in process memory.
type DedupCache struct {
	mu       sync.Mutex
	sessions map[string]*dedupSession
}

type dedupSession struct {
	userID string
	seen   map[dedupKey]struct{}
}

type dedupKey struct {
	entityID  string
	eventType string
}

// NewDedupCache constructs an empty cache with no open sessions.
func NewDedupCache() *DedupCache {
	return &DedupCache{sessions: map[string]*dedupSession{}}
}

// Open starts a session; reopening keeps existing marks.
func (c *DedupCache) Open(_ context.Context, sessionID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.sessions[sessionID]; ok {
		existing.userID = userID
		return nil
	}
	c.sessions[sessionID] = &dedupSession{userID: userID, seen: map[dedupKey]struct{}{}}
	return nil
}

func (c *DedupCache) UserID(_ context.Context, sessionID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.sessions[sessionID]
	if !ok {
		return "", ports.ErrSessionClosed
	}
	return session.userID, nil
}

func (c *DedupCache) Seen(_ context.Context, sessionID, entityID, eventType string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.sessions[sessionID]
	if !ok {
		return false, ports.ErrSessionClosed
	}
	key := dedupKey{entityID: entityID, eventType: eventType}
	if _, seen := session.seen[key]; seen {
		return true, nil
	}
	session.seen[key] = struct{}{}
	return false, nil
}

func (c *DedupCache) Close(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	return nil
}
