package domain

import "time"

// Event is the base interface for all domain events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
	// PartitionKey groups events that must stay ordered, the pet id for this context.
	PartitionKey() string
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// RequestSubmitted is raised when an applicant files a new request.
type RequestSubmitted struct {
	BaseEvent
	RequestID   string
	PetID       string
	ApplicantID string
	CreatorID   string
}

// EventName returns the event type identifier.
func (e RequestSubmitted) EventName() string { return "adoption.request.submitted" }

// PartitionKey returns the pet id.
func (e RequestSubmitted) PartitionKey() string { return e.PetID }

// RequestStatusChanged is raised for every request transition after submission.
type RequestStatusChanged struct {
	BaseEvent
	RequestID   string
	PetID       string
	ApplicantID string
	ActorID     string
	From        RequestStatus
	To          RequestStatus
	Reason      string
}

// EventName returns the event type identifier, one per target status.
func (e RequestStatusChanged) EventName() string { return "adoption.request." + string(e.To) }

// PartitionKey returns the pet id.
func (e RequestStatusChanged) PartitionKey() string { return e.PetID }

// HandoverStatusChanged is raised when a handover is requested or transitions.
type HandoverStatusChanged struct {
	BaseEvent
	HandoverID string
	RequestID  string
	PetID      string
	ActorID    string
	To         HandoverStatus
}

// EventName returns the event type identifier, one per target status.
func (e HandoverStatusChanged) EventName() string { return "adoption.handover." + string(e.To) }

// PartitionKey returns the pet id.
func (e HandoverStatusChanged) PartitionKey() string { return e.PetID }

// PetAdopted is raised once the completion cascade marked the pet adopted.
type PetAdopted struct {
	BaseEvent
	PetID     string
	RequestID string
	AdopterID string
	OwnerID   string
}

// EventName returns the event type identifier.
func (e PetAdopted) EventName() string { return "adoption.pet.adopted" }

// PartitionKey returns the pet id.
func (e PetAdopted) PartitionKey() string { return e.PetID }
