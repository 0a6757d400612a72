package ports

import (
	"context"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
)

// Service defines the adoption lifecycle use cases exposed to adapters (inbound/driving port).
type Service interface {
	RegisterPet(ctx context.Context, input types.RegisterPetInput) (*types.PetProjection, error)
	SetVisibility(ctx context.Context, input types.SetVisibilityInput) (*types.PetProjection, error)
	DeletePet(ctx context.Context, input types.DeletePetInput) error

	SubmitRequest(ctx context.Context, input types.SubmitRequestInput) (*types.RequestProjection, error)
	Decide(ctx context.Context, input types.DecideInput) (*types.RequestProjection, error)
	CancelRequest(ctx context.Context, input types.CancelRequestInput) (*types.RequestProjection, error)
	Reconcile(ctx context.Context, requestID string) (*types.ReconcileResult, error)

	CreateHandover(ctx context.Context, input types.CreateHandoverInput) (*types.HandoverProjection, error)
	ConfirmHandover(ctx context.Context, input types.ConfirmHandoverInput) (*types.HandoverProjection, error)
	CompleteHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error)
	CancelHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error)

	GetPet(ctx context.Context, petID string) (*types.PetProjection, error)
	AvailablePets(ctx context.Context) ([]*types.PetProjection, error)
	AdoptedPets(ctx context.Context, ownerID string) ([]*types.PetProjection, error)
	GetRequest(ctx context.Context, requestID string) (*types.RequestProjection, error)
	PendingRequests(ctx context.Context) ([]*types.RequestProjection, error)
	RequestsForPet(ctx context.Context, petID string) ([]*types.RequestProjection, error)
	RequestsForUser(ctx context.Context, userID string) ([]*types.RequestProjection, error)
	RequestsForOwner(ctx context.Context, ownerID string) ([]*types.RequestProjection, error)
	GetHandover(ctx context.Context, handoverID string) (*types.HandoverProjection, error)
	HandoversForRequest(ctx context.Context, requestID string) ([]*types.HandoverProjection, error)
	WatchRequestsForPet(ctx context.Context, petID string) (<-chan []*types.RequestProjection, error)
	WatchRequestsForOwner(ctx context.Context, ownerID string) (<-chan []*types.RequestProjection, error)
}
