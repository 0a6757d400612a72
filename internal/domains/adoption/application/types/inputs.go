package types

import (
	"time"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
)

// RegisterPetInput captures a new listing published by its owner.
type RegisterPetInput struct {
	CreatorID   string
	Name        string
	Species     string
	Breed       string
	Description string
	PhotoURLs   []string
	Hidden      bool
}

// SetVisibilityInput hides or shows a listing.
type SetVisibilityInput struct {
	PetID      string
	ActorID    string
	Visibility domain.Visibility
}

// DeletePetInput removes a listing.
type DeletePetInput struct {
	PetID   string
	ActorID string
}

// SubmitRequestInput files an application for a pet.
type SubmitRequestInput struct {
	PetID         string
	ApplicantID   string
	ApplicantName string
	Form          map[string]string
}

// DecideInput carries the owner's verdict on a pending request.
type DecideInput struct {
	RequestID string
	DeciderID string
	Decision  domain.Decision
	Reason    string
}

// CancelRequestInput withdraws a request.
type CancelRequestInput struct {
	RequestID string
	ActorID   string
}

// CreateHandoverInput schedules a transfer for an approved request.
type CreateHandoverInput struct {
	RequestID    string
	ActorID      string
	ProposedDate time.Time
	Location     string
	Notes        string
}

// ConfirmHandoverInput records the agreed date and place.
type ConfirmHandoverInput struct {
	HandoverID    string
	ActorID       string
	ConfirmedDate time.Time
	Location      string
}

// HandoverActionInput identifies a handover and who acts on it.
type HandoverActionInput struct {
	HandoverID string
	ActorID    string
}
