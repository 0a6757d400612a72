package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HandoverStatus is the lifecycle state of a scheduled transfer.
type HandoverStatus string

const (
	HandoverStatusRequested HandoverStatus = "requested"
	HandoverStatusConfirmed HandoverStatus = "confirmed"
	HandoverStatusCompleted HandoverStatus = "completed"
	HandoverStatusCancelled HandoverStatus = "cancelled"
)

// IsTerminal reports whether no transition may leave the status.
func (s HandoverStatus) IsTerminal() bool {
	return s == HandoverStatusCompleted || s == HandoverStatusCancelled
}

// OpenHandoverStatuses lists the statuses of a handover that still blocks a new one.
func OpenHandoverStatuses() []HandoverStatus {
	return []HandoverStatus{HandoverStatusRequested, HandoverStatusConfirmed}
}

// Handover is the physical transfer of a pet from owner to adopter.
type Handover struct {
	ID            string
	RequestID     string
	PetID         string
	AdopterID     string
	OwnerID       string
	ProposedDate  time.Time
	ConfirmedDate *time.Time
	Location      string
	Notes         string
	Status        HandoverStatus
	CancelledBy   string
	CompletedAt   *time.Time
}

var (
	ErrRequestNotApproved   = errors.New("handover requires an approved request")
	ErrMissingProposedDate  = errors.New("handover proposed date is required")
	ErrMissingConfirmedDate = errors.New("handover confirmed date is required")
	ErrHandoverNotConfirmed = errors.New("handover must be confirmed before completion")
)

// NewHandover schedules a transfer for an approved request.
func NewHandover(id string, req *Request, proposed time.Time, location, notes string) (*Handover, error) {
	if req == nil {
		return nil, ErrMissingPetID
	}
	if err := req.ValidateReferences(); err != nil {
		return nil, err
	}
	if req.Status != RequestStatusApproved {
		return nil, fmt.Errorf("%w: request is %s", ErrRequestNotApproved, req.Status)
	}
	if proposed.IsZero() {
		return nil, ErrMissingProposedDate
	}
	return &Handover{
		ID:           id,
		RequestID:    req.ID,
		PetID:        req.PetID,
		AdopterID:    req.ApplicantID,
		OwnerID:      req.CreatorID,
		ProposedDate: proposed,
		Location:     strings.TrimSpace(location),
		Notes:        strings.TrimSpace(notes),
		Status:       HandoverStatusRequested,
	}, nil
}

// IsParty reports whether userID is the adopter or the owner.
func (h *Handover) IsParty(userID string) bool {
	return userID != "" && (userID == h.AdopterID || userID == h.OwnerID)
}

// Confirm records the agreed date and location.
func (h *Handover) Confirm(date time.Time, location string) error {
	if date.IsZero() {
		return ErrMissingConfirmedDate
	}
	if h.Status.IsTerminal() {
		return fmt.Errorf("%w: handover is %s", ErrTerminalStatus, h.Status)
	}
	if h.Status != HandoverStatusRequested {
		return fmt.Errorf("%w: handover %s -> %s", ErrInvalidTransition, h.Status, HandoverStatusConfirmed)
	}
	h.Status = HandoverStatusConfirmed
	h.ConfirmedDate = &date
	if strings.TrimSpace(location) != "" {
		h.Location = strings.TrimSpace(location)
	}
	return nil
}

// Complete finalizes the transfer. With strict set only confirmed handovers complete.
// It returns false when the handover is already completed.
func (h *Handover) Complete(strict bool, at time.Time) (bool, error) {
	switch h.Status {
	case HandoverStatusCompleted:
		return false, nil
	case HandoverStatusCancelled:
		return false, fmt.Errorf("%w: handover is %s", ErrTerminalStatus, h.Status)
	case HandoverStatusRequested:
		if strict {
			return false, ErrHandoverNotConfirmed
		}
	}
	h.Status = HandoverStatusCompleted
	h.CompletedAt = &at
	return true, nil
}

// Cancel terminates an open handover.
func (h *Handover) Cancel(actor string) error {
	if h.Status.IsTerminal() {
		return fmt.Errorf("%w: handover is %s", ErrTerminalStatus, h.Status)
	}
	h.Status = HandoverStatusCancelled
	h.CancelledBy = actor
	return nil
}

// Clone returns a deep copy safe to hand across goroutines.
func (h *Handover) Clone() *Handover {
	if h == nil {
		return nil
	}
	copy := *h
	copy.ConfirmedDate = cloneTime(h.ConfirmedDate)
	copy.CompletedAt = cloneTime(h.CompletedAt)
	return &copy
}
