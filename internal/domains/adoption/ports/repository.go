package ports

import (
	"context"
	"errors"
	"sort"
	"time"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document version conflict")
	ErrDuplicate       = errors.New("document violates a uniqueness constraint")
)

// SortDirection orders request queries by request date.
type SortDirection string

const (
	// SortOldestFirst puts requests without a date first.
	SortOldestFirst SortDirection = "asc"
	// SortNewestFirst puts requests without a date last.
	SortNewestFirst SortDirection = "desc"
)

// PetQuery filters pet listings; zero fields do not filter.
type PetQuery struct {
	CreatorID   string
	Statuses    []domain.PetStatus
	VisibleOnly bool
	Limit       int
}

// Matches applies the filter to a single pet.
func (q PetQuery) Matches(p *domain.Pet) bool {
	if q.CreatorID != "" && p.CreatorID != q.CreatorID {
		return false
	}
	if q.VisibleOnly && !p.IsVisible() {
		return false
	}
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if p.Status == s {
			return true
		}
	}
	return false
}

// RequestQuery filters adoption requests; zero fields do not filter.
type RequestQuery struct {
	PetID       string
	ApplicantID string
	CreatorID   string
	// Party matches requests where the user is either applicant or creator.
	Party    string
	Statuses []domain.RequestStatus
	Order    SortDirection
	Limit    int
}

// Matches applies the filter to a single request.
func (q RequestQuery) Matches(r *domain.Request) bool {
	if q.PetID != "" && r.PetID != q.PetID {
		return false
	}
	if q.ApplicantID != "" && r.ApplicantID != q.ApplicantID {
		return false
	}
	if q.CreatorID != "" && r.CreatorID != q.CreatorID {
		return false
	}
	if q.Party != "" && !r.IsParty(q.Party) {
		return false
	}
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// HandoverQuery filters handovers; zero fields do not filter.
type HandoverQuery struct {
	RequestID string
	PetID     string
	Statuses  []domain.HandoverStatus
	Limit     int
}

// Matches applies the filter to a single handover.
func (q HandoverQuery) Matches(h *domain.Handover) bool {
	if q.RequestID != "" && h.RequestID != q.RequestID {
		return false
	}
	if q.PetID != "" && h.PetID != q.PetID {
		return false
	}
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if h.Status == s {
			return true
		}
	}
	return false
}

// SortRequests orders requests by request date, a missing date counting as the lowest value.
// Ties fall back to creation time then id so results are stable.
func SortRequests(list []*types.RequestProjection, dir SortDirection) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Entity.RequestDate.Equal(b.Entity.RequestDate) {
			return less(a.Entity.RequestDate, b.Entity.RequestDate, dir)
		}
		if !a.Metadata.CreatedAt.Equal(b.Metadata.CreatedAt) {
			return less(a.Metadata.CreatedAt, b.Metadata.CreatedAt, dir)
		}
		return a.Entity.ID < b.Entity.ID
	})
}

func less(a, b time.Time, dir SortDirection) bool {
	if dir == SortNewestFirst {
		return a.After(b)
	}
	return a.Before(b)
}

// PetRepository stores pet listings.
type PetRepository interface {
	Create(ctx context.Context, pet *domain.Pet) (*types.PetProjection, error)
	Get(ctx context.Context, id string) (*types.PetProjection, error)
	// Update writes pet when the stored version still equals expectedVersion, else ErrVersionConflict.
	Update(ctx context.Context, pet *domain.Pet, expectedVersion int64) (*types.PetProjection, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, query PetQuery) ([]*types.PetProjection, error)
}

// RequestRepository stores adoption requests.
type RequestRepository interface {
	// Create fails with ErrDuplicate when the applicant already has a pending request for the pet.
	Create(ctx context.Context, req *domain.Request) (*types.RequestProjection, error)
	Get(ctx context.Context, id string) (*types.RequestProjection, error)
	Update(ctx context.Context, req *domain.Request, expectedVersion int64) (*types.RequestProjection, error)
	Query(ctx context.Context, query RequestQuery) ([]*types.RequestProjection, error)
	// Watch emits the matching snapshot immediately and again after every change until ctx ends.
	Watch(ctx context.Context, query RequestQuery) (<-chan []*types.RequestProjection, error)
}

// HandoverRepository stores handovers.
type HandoverRepository interface {
	// Create fails with ErrDuplicate while another handover for the request is still open.
	Create(ctx context.Context, handover *domain.Handover) (*types.HandoverProjection, error)
	Get(ctx context.Context, id string) (*types.HandoverProjection, error)
	Update(ctx context.Context, handover *domain.Handover, expectedVersion int64) (*types.HandoverProjection, error)
	Query(ctx context.Context, query HandoverQuery) ([]*types.HandoverProjection, error)
}

// Repositories bundles the per-entity repositories of one store.
type Repositories struct {
	Pets      PetRepository
	Requests  RequestRepository
	Handovers HandoverRepository
}

// TxManager runs fn inside a multi-document transaction carried by ctx.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
