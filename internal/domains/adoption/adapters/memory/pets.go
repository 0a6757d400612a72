package memory

import (
	"context"
	"errors"
	"sort"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// PetRepository is the pets view of a Store.
type PetRepository struct {
	store *Store
}

func (r *PetRepository) Create(_ context.Context, pet *domain.Pet) (*types.PetProjection, error) {
	if pet == nil {
		return nil, errors.New("cannot save nil pet")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pets.docs[pet.ID]; ok {
		return nil, ports.ErrDuplicate
	}
	return s.pets.create(pet.ID, pet, s.now()), nil
}

func (r *PetRepository) Get(_ context.Context, id string) (*types.PetProjection, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pets.get(id)
}

func (r *PetRepository) Update(_ context.Context, pet *domain.Pet, expectedVersion int64) (*types.PetProjection, error) {
	if pet == nil {
		return nil, errors.New("cannot save nil pet")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pets.update(pet.ID, pet, expectedVersion, s.now())
}

func (r *PetRepository) Delete(_ context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pets.remove(id)
}

// Query returns matching pets, newest listings first.
func (r *PetRepository) Query(_ context.Context, query ports.PetQuery) ([]*types.PetProjection, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.pets.filter(query.Matches)
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Metadata.CreatedAt.Equal(b.Metadata.CreatedAt) {
			return a.Metadata.CreatedAt.After(b.Metadata.CreatedAt)
		}
		return a.Entity.ID < b.Entity.ID
	})
	return limit(result, query.Limit), nil
}
