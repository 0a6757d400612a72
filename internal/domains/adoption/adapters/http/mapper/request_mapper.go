package mapper

import (
	"time"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
)

// NewRequest captures an application for a pet.
type NewRequest struct {
	ApplicantName string            `json:"applicantName,omitempty"`
	Form          map[string]string `json:"form,omitempty"`
}

// Decision is the owner's verdict payload.
type Decision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// Request is the HTTP representation of an adoption request.
type Request struct {
	ID              string            `json:"id"`
	PetID           string            `json:"petId"`
	PetName         string            `json:"petName"`
	ApplicantID     string            `json:"applicantId"`
	ApplicantName   string            `json:"applicantName,omitempty"`
	CreatorID       string            `json:"creatorId"`
	Form            map[string]string `json:"form,omitempty"`
	Status          string            `json:"status"`
	RequestDate     *time.Time        `json:"requestDate,omitempty"`
	ReviewedBy      string            `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time        `json:"reviewedAt,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
	CancelledBy     string            `json:"cancelledBy,omitempty"`
	Version         int64             `json:"version"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Reconciliation reports which cascade steps were re-applied.
type Reconciliation struct {
	RequestID string   `json:"requestId"`
	Status    string   `json:"status"`
	Applied   []string `json:"applied"`
}

// ToSubmitRequestInput binds the path pet and acting applicant to the payload.
func ToSubmitRequestInput(petID, applicantID string, payload NewRequest) types.SubmitRequestInput {
	return types.SubmitRequestInput{
		PetID:         petID,
		ApplicantID:   applicantID,
		ApplicantName: payload.ApplicantName,
		Form:          CloneForm(payload.Form),
	}
}

// ToDecideInput validates the verdict name and builds the decision command.
func ToDecideInput(requestID, deciderID string, payload Decision) (types.DecideInput, error) {
	decision, err := domain.ParseDecision(payload.Decision)
	if err != nil {
		return types.DecideInput{}, err
	}
	return types.DecideInput{RequestID: requestID, DeciderID: deciderID, Decision: decision, Reason: payload.Reason}, nil
}

// FromRequestProjection maps a stored request to its transport shape.
// A zero request date is omitted rather than rendered as year one.
func FromRequestProjection(p *types.RequestProjection) Request {
	r := p.Entity
	out := Request{
		ID:              r.ID,
		PetID:           r.PetID,
		PetName:         r.PetName,
		ApplicantID:     r.ApplicantID,
		ApplicantName:   r.ApplicantName,
		CreatorID:       r.CreatorID,
		Form:            CloneForm(r.Form),
		Status:          string(r.Status),
		ReviewedBy:      r.ReviewedBy,
		RejectionReason: r.RejectionReason,
		CancelledBy:     r.CancelledBy,
		Version:         p.Metadata.Version,
		UpdatedAt:       p.Metadata.UpdatedAt,
	}
	if !r.RequestDate.IsZero() {
		date := r.RequestDate
		out.RequestDate = &date
	}
	if r.ReviewedAt != nil {
		reviewed := *r.ReviewedAt
		out.ReviewedAt = &reviewed
	}
	return out
}

// FromRequestProjectionList maps requests preserving order.
func FromRequestProjectionList(list []*types.RequestProjection) []Request {
	result := make([]Request, 0, len(list))
	for _, p := range list {
		result = append(result, FromRequestProjection(p))
	}
	return result
}

// FromReconcileResult maps a reconciliation outcome.
func FromReconcileResult(r *types.ReconcileResult) Reconciliation {
	applied := append([]string{}, r.Applied...)
	return Reconciliation{RequestID: r.RequestID, Status: string(r.Status), Applied: applied}
}

// CloneForm duplicates the answers map to prevent shared references.
func CloneForm(form map[string]string) map[string]string {
	if len(form) == 0 {
		return nil
	}
	copy := make(map[string]string, len(form))
	for k, v := range form {
		copy[k] = v
	}
	return copy
}
