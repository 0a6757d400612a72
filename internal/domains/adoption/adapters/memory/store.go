package memory

import (
	"sync"
	"time"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
	"github.com/Apurer/go-gin-adoption-server/internal/shared/projection"
)

var (
	_ ports.PetRepository      = (*PetRepository)(nil)
	_ ports.RequestRepository  = (*RequestRepository)(nil)
	_ ports.HandoverRepository = (*HandoverRepository)(nil)
)

// Store is an in-memory document store used for demos, local runs and tests.
// Every write bumps the document version so callers get compare-and-set semantics.
type Store struct {
	mu        sync.RWMutex
	pets      collection[*domain.Pet]
	requests  collection[*domain.Request]
	handovers collection[*domain.Handover]
	watchers  map[int]*requestWatcher
	nextWatch int
	now       func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		pets:      newCollection((*domain.Pet).Clone),
		requests:  newCollection((*domain.Request).Clone),
		handovers: newCollection((*domain.Handover).Clone),
		watchers:  map[int]*requestWatcher{},
		now:       time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *Store) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Repositories exposes the typed repositories backed by this store.
func (s *Store) Repositories() ports.Repositories {
	return ports.Repositories{
		Pets:      &PetRepository{store: s},
		Requests:  &RequestRepository{store: s},
		Handovers: &HandoverRepository{store: s},
	}
}

type stored[T any] struct {
	entity   T
	metadata projection.Metadata
}

// collection is a map of versioned documents; callers hold Store.mu.
// Entities are cloned on the way in and out so callers never share memory with the store.
type collection[T any] struct {
	docs  map[string]*stored[T]
	clone func(T) T
}

func newCollection[T any](clone func(T) T) collection[T] {
	return collection[T]{docs: map[string]*stored[T]{}, clone: clone}
}

func (c *collection[T]) get(id string) (*projection.Projection[T], error) {
	entry, ok := c.docs[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return c.project(entry), nil
}

func (c *collection[T]) create(id string, entity T, now time.Time) *projection.Projection[T] {
	entry := &stored[T]{
		entity:   c.clone(entity),
		metadata: projection.Metadata{CreatedAt: now, UpdatedAt: now, Version: 1},
	}
	c.docs[id] = entry
	return c.project(entry)
}

func (c *collection[T]) update(id string, entity T, expectedVersion int64, now time.Time) (*projection.Projection[T], error) {
	entry, ok := c.docs[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if entry.metadata.Version != expectedVersion {
		return nil, ports.ErrVersionConflict
	}
	entry.entity = c.clone(entity)
	entry.metadata.UpdatedAt = now
	entry.metadata.Version++
	return c.project(entry), nil
}

func (c *collection[T]) remove(id string) error {
	if _, ok := c.docs[id]; !ok {
		return ports.ErrNotFound
	}
	delete(c.docs, id)
	return nil
}

func (c *collection[T]) filter(match func(T) bool) []*projection.Projection[T] {
	result := make([]*projection.Projection[T], 0)
	for _, entry := range c.docs {
		if match(entry.entity) {
			result = append(result, c.project(entry))
		}
	}
	return result
}

func (c *collection[T]) project(entry *stored[T]) *projection.Projection[T] {
	return projection.New(c.clone(entry.entity), entry.metadata)
}

func limit[T any](list []T, n int) []T {
	if n > 0 && len(list) > n {
		return list[:n]
	}
	return list
}
