package memory

import (
	"context"
	"errors"
	"sort"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// HandoverRepository is the handovers view of a Store.
type HandoverRepository struct {
	store *Store
}

// Create fails with ErrDuplicate while the request already has an open handover.
func (r *HandoverRepository) Create(_ context.Context, handover *domain.Handover) (*types.HandoverProjection, error) {
	if handover == nil {
		return nil, errors.New("cannot save nil handover")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handovers.docs[handover.ID]; ok {
		return nil, ports.ErrDuplicate
	}
	for _, entry := range s.handovers.docs {
		if entry.entity.RequestID == handover.RequestID && !entry.entity.Status.IsTerminal() {
			return nil, ports.ErrDuplicate
		}
	}
	return s.handovers.create(handover.ID, handover, s.now()), nil
}

func (r *HandoverRepository) Get(_ context.Context, id string) (*types.HandoverProjection, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handovers.get(id)
}

func (r *HandoverRepository) Update(_ context.Context, handover *domain.Handover, expectedVersion int64) (*types.HandoverProjection, error) {
	if handover == nil {
		return nil, errors.New("cannot save nil handover")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handovers.update(handover.ID, handover, expectedVersion, s.now())
}

// Query returns matching handovers, most recently created first.
func (r *HandoverRepository) Query(_ context.Context, query ports.HandoverQuery) ([]*types.HandoverProjection, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.handovers.filter(query.Matches)
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Metadata.CreatedAt.Equal(b.Metadata.CreatedAt) {
			return a.Metadata.CreatedAt.After(b.Metadata.CreatedAt)
		}
		return a.Entity.ID < b.Entity.ID
	})
	return limit(result, query.Limit), nil
}
