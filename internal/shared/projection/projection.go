package projection

import "time"

// Metadata captures persistence timestamps and the compare-and-set version shared by projections.
type Metadata struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	// Version increments on every successful write and guards optimistic updates.
	Version int64
}

// Projection represents an aggregate view plus persistence metadata.
type Projection[T any] struct {
	Entity   T
	Metadata Metadata
}

// New wraps an entity with its metadata.
func New[T any](entity T, meta Metadata) *Projection[T] {
	return &Projection[T]{Entity: entity, Metadata: meta}
}
