package mapper

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
)

// NewHandover proposes a transfer date for an approved request.
type NewHandover struct {
	ProposedDate *openapi_types.Date `json:"proposedDate"`
	Location     string              `json:"location,omitempty"`
	Notes        string              `json:"notes,omitempty"`
}

// HandoverConfirmation fixes the agreed date and place.
type HandoverConfirmation struct {
	ConfirmedDate *openapi_types.Date `json:"confirmedDate"`
	Location      string              `json:"location,omitempty"`
}

// Handover is the HTTP representation of a scheduled transfer.
type Handover struct {
	ID            string              `json:"id"`
	RequestID     string              `json:"requestId"`
	PetID         string              `json:"petId"`
	AdopterID     string              `json:"adopterId"`
	OwnerID       string              `json:"ownerId"`
	ProposedDate  openapi_types.Date  `json:"proposedDate"`
	ConfirmedDate *openapi_types.Date `json:"confirmedDate,omitempty"`
	Location      string              `json:"location,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Status        string              `json:"status"`
	CancelledBy   string              `json:"cancelledBy,omitempty"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
	Version       int64               `json:"version"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// ToCreateHandoverInput builds the scheduling command; a missing date stays zero for the service to reject.
func ToCreateHandoverInput(requestID, actorID string, payload NewHandover) types.CreateHandoverInput {
	return types.CreateHandoverInput{
		RequestID:    requestID,
		ActorID:      actorID,
		ProposedDate: dateValue(payload.ProposedDate),
		Location:     payload.Location,
		Notes:        payload.Notes,
	}
}

// ToConfirmHandoverInput builds the confirmation command.
func ToConfirmHandoverInput(handoverID, actorID string, payload HandoverConfirmation) types.ConfirmHandoverInput {
	return types.ConfirmHandoverInput{
		HandoverID:    handoverID,
		ActorID:       actorID,
		ConfirmedDate: dateValue(payload.ConfirmedDate),
		Location:      payload.Location,
	}
}

// FromHandoverProjection maps a stored handover to its transport shape.
func FromHandoverProjection(p *types.HandoverProjection) Handover {
	h := p.Entity
	out := Handover{
		ID:           h.ID,
		RequestID:    h.RequestID,
		PetID:        h.PetID,
		AdopterID:    h.AdopterID,
		OwnerID:      h.OwnerID,
		ProposedDate: openapi_types.Date{Time: h.ProposedDate},
		Location:     h.Location,
		Notes:        h.Notes,
		Status:       string(h.Status),
		CancelledBy:  h.CancelledBy,
		Version:      p.Metadata.Version,
		UpdatedAt:    p.Metadata.UpdatedAt,
	}
	if h.ConfirmedDate != nil {
		out.ConfirmedDate = &openapi_types.Date{Time: *h.ConfirmedDate}
	}
	if h.CompletedAt != nil {
		completed := *h.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}

// FromHandoverProjectionList maps handovers preserving order.
func FromHandoverProjectionList(list []*types.HandoverProjection) []Handover {
	result := make([]Handover, 0, len(list))
	for _, p := range list {
		result = append(result, FromHandoverProjection(p))
	}
	return result
}

func dateValue(d *openapi_types.Date) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
