package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RequestStatus is the lifecycle state of an adoption request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:  {RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled},
	RequestStatusApproved: {RequestStatusCancelled, RequestStatusCompleted},
}

// IsTerminal reports whether no transition may leave the status.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusRejected, RequestStatusCancelled, RequestStatusCompleted:
		return true
	}
	return false
}

// IsOpen reports whether the request still competes for or holds its pet.
func (s RequestStatus) IsOpen() bool {
	return s == RequestStatusPending || s == RequestStatusApproved
}

// ParseRequestStatus validates a status name.
func ParseRequestStatus(raw string) (RequestStatus, error) {
	status := RequestStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCompleted, RequestStatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// Decision is the owner's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a decision name.
func ParseDecision(raw string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(raw))); d {
	case DecisionApprove, DecisionReject:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDecision, raw)
}

// Request is one applicant's request to adopt one pet.
type Request struct {
	ID            string
	PetID         string
	ApplicantID   string
	CreatorID     string
	ApplicantName string
	PetName       string
	// Form holds the free-form answers of the application (housing, experience, message).
	Form            map[string]string
	Status          RequestStatus
	RequestDate     time.Time
	ReviewedBy      string
	ReviewedAt      *time.Time
	RejectionReason string
	CancelledBy     string
	ClosedAt        *time.Time
}

var (
	ErrMissingPetID       = errors.New("request pet id is required")
	ErrMissingApplicantID = errors.New("request applicant id is required")
	ErrMissingCreatorID   = errors.New("request creator id is required")
	ErrSelfApplication    = errors.New("owners cannot apply for their own pet")
	ErrTerminalStatus     = errors.New("status is terminal")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrUnknownStatus      = errors.New("unknown status")
	ErrUnknownDecision    = errors.New("decision must be approve or reject")
)

// NewRequest snapshots the pet and applicant into a pending request.
func NewRequest(id string, pet *Pet, applicantID, applicantName string, form map[string]string, at time.Time) (*Request, error) {
	if pet == nil || strings.TrimSpace(pet.ID) == "" {
		return nil, ErrMissingPetID
	}
	if strings.TrimSpace(applicantID) == "" {
		return nil, ErrMissingApplicantID
	}
	if applicantID == pet.CreatorID {
		return nil, ErrSelfApplication
	}
	r := &Request{
		ID:            id,
		PetID:         pet.ID,
		ApplicantID:   applicantID,
		CreatorID:     pet.CreatorID,
		ApplicantName: strings.TrimSpace(applicantName),
		PetName:       pet.Name,
		Form:          cloneForm(form),
		Status:        RequestStatusPending,
		RequestDate:   at,
	}
	if err := r.ValidateReferences(); err != nil {
		return nil, err
	}
	return r, nil
}

// ValidateReferences checks the foreign keys a handover needs.
func (r *Request) ValidateReferences() error {
	var errs []error
	if strings.TrimSpace(r.PetID) == "" {
		errs = append(errs, ErrMissingPetID)
	}
	if strings.TrimSpace(r.ApplicantID) == "" {
		errs = append(errs, ErrMissingApplicantID)
	}
	if strings.TrimSpace(r.CreatorID) == "" {
		errs = append(errs, ErrMissingCreatorID)
	}
	return errors.Join(errs...)
}

// IsParty reports whether userID is the applicant or the owner.
func (r *Request) IsParty(userID string) bool {
	return userID != "" && (userID == r.ApplicantID || userID == r.CreatorID)
}

// Approve marks the request approved by reviewer.
func (r *Request) Approve(reviewer string, at time.Time) error {
	if err := r.transition(RequestStatusApproved); err != nil {
		return err
	}
	r.ReviewedBy = reviewer
	r.ReviewedAt = &at
	return nil
}

// Reject closes a pending request with an optional reason.
func (r *Request) Reject(reviewer, reason string, at time.Time) error {
	if err := r.transition(RequestStatusRejected); err != nil {
		return err
	}
	r.ReviewedBy = reviewer
	r.ReviewedAt = &at
	r.RejectionReason = strings.TrimSpace(reason)
	r.ClosedAt = &at
	return nil
}

// Cancel withdraws a pending or approved request on behalf of actor.
func (r *Request) Cancel(actor string, at time.Time) error {
	if err := r.transition(RequestStatusCancelled); err != nil {
		return err
	}
	r.CancelledBy = actor
	r.ClosedAt = &at
	return nil
}

// Complete finalizes an approved request once its handover completed.
// It returns false when the request is already completed.
func (r *Request) Complete(at time.Time) (bool, error) {
	if r.Status == RequestStatusCompleted {
		return false, nil
	}
	if err := r.transition(RequestStatusCompleted); err != nil {
		return false, err
	}
	r.ClosedAt = &at
	return true, nil
}

func (r *Request) transition(to RequestStatus) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: request is %s", ErrTerminalStatus, r.Status)
	}
	for _, allowed := range requestTransitions[r.Status] {
		if allowed == to {
			r.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: request %s -> %s", ErrInvalidTransition, r.Status, to)
}

// Clone returns a deep copy safe to hand across goroutines.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	copy := *r
	copy.Form = cloneForm(r.Form)
	copy.ReviewedAt = cloneTime(r.ReviewedAt)
	copy.ClosedAt = cloneTime(r.ClosedAt)
	return &copy
}

func cloneForm(form map[string]string) map[string]string {
	if len(form) == 0 {
		return nil
	}
	copy := make(map[string]string, len(form))
	for k, v := range form {
		copy[k] = v
	}
	return copy
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
