package postgres

import (
	"time"

	"github.com/lib/pq"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/shared/projection"
)

// Models lists every table owned by the adoption context, in migration order.
func Models() []any {
	return []any{
		&petRecord{},
		&requestRecord{},
		&handoverRecord{},
		&sessionRecord{},
		&dedupRecord{},
	}
}

type petRecord struct {
	ID              string         `gorm:"primaryKey;column:id;size:64"`
	Name            string         `gorm:"column:name"`
	Species         string         `gorm:"column:species;size:64"`
	Breed           string         `gorm:"column:breed"`
	Description     string         `gorm:"column:description"`
	PhotoURLs       pq.StringArray `gorm:"column:photo_urls;type:text[]"`
	CreatorID       string         `gorm:"column:creator_id;size:64;index"`
	Visibility      string         `gorm:"column:visibility;type:varchar(16)"`
	Status          string         `gorm:"column:status;type:varchar(32);index"`
	ActiveRequestID string         `gorm:"column:active_request_id;size:64"`
	Version         int64          `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time      `gorm:"column:created_at;index"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (petRecord) TableName() string { return "pets" }

func newPetRecord(p *domain.Pet) petRecord {
	return petRecord{
		ID:              p.ID,
		Name:            p.Name,
		Species:         p.Species,
		Breed:           p.Breed,
		Description:     p.Description,
		PhotoURLs:       copyStrings(p.PhotoURLs),
		CreatorID:       p.CreatorID,
		Visibility:      string(p.Visibility),
		Status:          string(p.Status),
		ActiveRequestID: p.ActiveRequestID,
	}
}

func (r *petRecord) toProjection() *types.PetProjection {
	pet := &domain.Pet{
		ID:              r.ID,
		Name:            r.Name,
		Species:         r.Species,
		Breed:           r.Breed,
		Description:     r.Description,
		PhotoURLs:       copyStrings(r.PhotoURLs),
		CreatorID:       r.CreatorID,
		Visibility:      domain.Visibility(r.Visibility),
		Status:          domain.PetStatus(r.Status),
		ActiveRequestID: r.ActiveRequestID,
	}
	return projection.New(pet, metadata(r.CreatedAt, r.UpdatedAt, r.Version))
}

type requestRecord struct {
	ID              string            `gorm:"primaryKey;column:id;size:64"`
	PetID           string            `gorm:"column:pet_id;size:64;index:idx_adoption_requests_pet_status"`
	ApplicantID     string            `gorm:"column:applicant_id;size:64;index"`
	CreatorID       string            `gorm:"column:creator_id;size:64;index"`
	ApplicantName   string            `gorm:"column:applicant_name"`
	PetName         string            `gorm:"column:pet_name"`
	Form            map[string]string `gorm:"column:form;serializer:json"`
	Status          string            `gorm:"column:status;type:varchar(32);index:idx_adoption_requests_pet_status"`
	RequestDate     *time.Time        `gorm:"column:request_date;index"`
	ReviewedBy      string            `gorm:"column:reviewed_by;size:64"`
	ReviewedAt      *time.Time        `gorm:"column:reviewed_at"`
	RejectionReason string            `gorm:"column:rejection_reason"`
	CancelledBy     string            `gorm:"column:cancelled_by;size:64"`
	ClosedAt        *time.Time        `gorm:"column:closed_at"`
	Version         int64             `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time         `gorm:"column:created_at;index"`
	UpdatedAt       time.Time         `gorm:"column:updated_at"`
}

func (requestRecord) TableName() string { return "adoption_requests" }

func newRequestRecord(r *domain.Request) requestRecord {
	rec := requestRecord{
		ID:              r.ID,
		PetID:           r.PetID,
		ApplicantID:     r.ApplicantID,
		CreatorID:       r.CreatorID,
		ApplicantName:   r.ApplicantName,
		PetName:         r.PetName,
		Form:            copyForm(r.Form),
		Status:          string(r.Status),
		ReviewedBy:      r.ReviewedBy,
		ReviewedAt:      copyTime(r.ReviewedAt),
		RejectionReason: r.RejectionReason,
		CancelledBy:     r.CancelledBy,
		ClosedAt:        copyTime(r.ClosedAt),
	}
	if !r.RequestDate.IsZero() {
		date := r.RequestDate.UTC()
		rec.RequestDate = &date
	}
	return rec
}

func (r *requestRecord) toProjection() *types.RequestProjection {
	req := &domain.Request{
		ID:              r.ID,
		PetID:           r.PetID,
		ApplicantID:     r.ApplicantID,
		CreatorID:       r.CreatorID,
		ApplicantName:   r.ApplicantName,
		PetName:         r.PetName,
		Form:            copyForm(r.Form),
		Status:          domain.RequestStatus(r.Status),
		ReviewedBy:      r.ReviewedBy,
		ReviewedAt:      copyTime(r.ReviewedAt),
		RejectionReason: r.RejectionReason,
		CancelledBy:     r.CancelledBy,
		ClosedAt:        copyTime(r.ClosedAt),
	}
	if r.RequestDate != nil {
		req.RequestDate = r.RequestDate.UTC()
	}
	return projection.New(req, metadata(r.CreatedAt, r.UpdatedAt, r.Version))
}

type handoverRecord struct {
	ID            string     `gorm:"primaryKey;column:id;size:64"`
	RequestID     string     `gorm:"column:request_id;size:64;index"`
	PetID         string     `gorm:"column:pet_id;size:64;index"`
	AdopterID     string     `gorm:"column:adopter_id;size:64"`
	OwnerID       string     `gorm:"column:owner_id;size:64"`
	ProposedDate  time.Time  `gorm:"column:proposed_date"`
	ConfirmedDate *time.Time `gorm:"column:confirmed_date"`
	Location      string     `gorm:"column:location"`
	Notes         string     `gorm:"column:notes"`
	Status        string     `gorm:"column:status;type:varchar(32);index"`
	CancelledBy   string     `gorm:"column:cancelled_by;size:64"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
	Version       int64      `gorm:"column:version;not null;default:1"`
	CreatedAt     time.Time  `gorm:"column:created_at;index"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (handoverRecord) TableName() string { return "handovers" }

func newHandoverRecord(h *domain.Handover) handoverRecord {
	return handoverRecord{
		ID:            h.ID,
		RequestID:     h.RequestID,
		PetID:         h.PetID,
		AdopterID:     h.AdopterID,
		OwnerID:       h.OwnerID,
		ProposedDate:  h.ProposedDate.UTC(),
		ConfirmedDate: copyTime(h.ConfirmedDate),
		Location:      h.Location,
		Notes:         h.Notes,
		Status:        string(h.Status),
		CancelledBy:   h.CancelledBy,
		CompletedAt:   copyTime(h.CompletedAt),
	}
}

func (r *handoverRecord) toProjection() *types.HandoverProjection {
	h := &domain.Handover{
		ID:            r.ID,
		RequestID:     r.RequestID,
		PetID:         r.PetID,
		AdopterID:     r.AdopterID,
		OwnerID:       r.OwnerID,
		ProposedDate:  r.ProposedDate.UTC(),
		ConfirmedDate: copyTime(r.ConfirmedDate),
		Location:      r.Location,
		Notes:         r.Notes,
		Status:        domain.HandoverStatus(r.Status),
		CancelledBy:   r.CancelledBy,
		CompletedAt:   copyTime(r.CompletedAt),
	}
	return projection.New(h, metadata(r.CreatedAt, r.UpdatedAt, r.Version))
}

// sessionRecord is one open notification session.
type sessionRecord struct {
	SessionID string    `gorm:"primaryKey;column:session_id;size:64"`
	UserID    string    `gorm:"column:user_id;size:64;index"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (sessionRecord) TableName() string { return "notification_sessions" }

// dedupRecord marks one (entity, event) pair as already shown to a session.
type dedupRecord struct {
	SessionID string    `gorm:"primaryKey;column:session_id;size:64"`
	EntityID  string    `gorm:"primaryKey;column:entity_id;size:64"`
	EventType string    `gorm:"primaryKey;column:event_type;size:64"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (dedupRecord) TableName() string { return "notification_dedup" }

func metadata(created, updated time.Time, version int64) projection.Metadata {
	return projection.Metadata{CreatedAt: created.UTC(), UpdatedAt: updated.UTC(), Version: version}
}

func copyStrings(in []string) pq.StringArray {
	if len(in) == 0 {
		return pq.StringArray{}
	}
	out := make(pq.StringArray, len(in))
	copy(out, in)
	return out
}

func copyForm(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
