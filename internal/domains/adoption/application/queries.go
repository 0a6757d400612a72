package application

import (
	"context"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// GetPet loads a single listing.
func (s *Service) GetPet(ctx context.Context, petID string) (*types.PetProjection, error) {
	pet, err := s.pets.Get(ctx, petID)
	if err != nil {
		return nil, mapError(err)
	}
	return pet, nil
}

// AvailablePets lists visible listings nobody has claimed yet.
func (s *Service) AvailablePets(ctx context.Context) ([]*types.PetProjection, error) {
	pets, err := s.pets.Query(ctx, ports.PetQuery{
		Statuses:    []domain.PetStatus{domain.PetStatusAvailable},
		VisibleOnly: true,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return pets, nil
}

// AdoptedPets lists the owner's listings that found a home.
func (s *Service) AdoptedPets(ctx context.Context, ownerID string) ([]*types.PetProjection, error) {
	pets, err := s.pets.Query(ctx, ports.PetQuery{
		CreatorID: ownerID,
		Statuses:  []domain.PetStatus{domain.PetStatusAdopted},
	})
	if err != nil {
		return nil, mapError(err)
	}
	return pets, nil
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (*types.RequestProjection, error) {
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

// PendingRequests is the triage view: every pending request, oldest first.
func (s *Service) PendingRequests(ctx context.Context) ([]*types.RequestProjection, error) {
	return s.queryRequests(ctx, ports.RequestQuery{
		Statuses: []domain.RequestStatus{domain.RequestStatusPending},
		Order:    ports.SortOldestFirst,
	})
}

func (s *Service) RequestsForPet(ctx context.Context, petID string) ([]*types.RequestProjection, error) {
	if _, err := s.pets.Get(ctx, petID); err != nil {
		return nil, mapError(err)
	}
	return s.queryRequests(ctx, ports.RequestQuery{PetID: petID, Order: ports.SortNewestFirst})
}

func (s *Service) RequestsForUser(ctx context.Context, userID string) ([]*types.RequestProjection, error) {
	return s.queryRequests(ctx, ports.RequestQuery{ApplicantID: userID, Order: ports.SortNewestFirst})
}

func (s *Service) RequestsForOwner(ctx context.Context, ownerID string) ([]*types.RequestProjection, error) {
	return s.queryRequests(ctx, ports.RequestQuery{CreatorID: ownerID, Order: ports.SortNewestFirst})
}

func (s *Service) GetHandover(ctx context.Context, handoverID string) (*types.HandoverProjection, error) {
	h, err := s.handovers.Get(ctx, handoverID)
	if err != nil {
		return nil, mapError(err)
	}
	return h, nil
}

func (s *Service) HandoversForRequest(ctx context.Context, requestID string) ([]*types.HandoverProjection, error) {
	if _, err := s.requests.Get(ctx, requestID); err != nil {
		return nil, mapError(err)
	}
	list, err := s.handovers.Query(ctx, ports.HandoverQuery{RequestID: requestID})
	if err != nil {
		return nil, mapError(err)
	}
	return list, nil
}

// WatchRequestsForPet streams the pet's requests, newest first, after every change.
func (s *Service) WatchRequestsForPet(ctx context.Context, petID string) (<-chan []*types.RequestProjection, error) {
	if _, err := s.pets.Get(ctx, petID); err != nil {
		return nil, mapError(err)
	}
	updates, err := s.requests.Watch(ctx, ports.RequestQuery{PetID: petID, Order: ports.SortNewestFirst})
	if err != nil {
		return nil, mapError(err)
	}
	return updates, nil
}

// WatchRequestsForOwner streams the requests received by an owner, newest first.
func (s *Service) WatchRequestsForOwner(ctx context.Context, ownerID string) (<-chan []*types.RequestProjection, error) {
	updates, err := s.requests.Watch(ctx, ports.RequestQuery{CreatorID: ownerID, Order: ports.SortNewestFirst})
	if err != nil {
		return nil, mapError(err)
	}
	return updates, nil
}

func (s *Service) queryRequests(ctx context.Context, query ports.RequestQuery) ([]*types.RequestProjection, error) {
	list, err := s.requests.Query(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	return list, nil
}
