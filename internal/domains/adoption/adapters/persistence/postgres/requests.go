package postgres

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// RequestRepository persists adoption requests in the adoption_requests table.
type RequestRepository struct {
	db           *gorm.DB
	pollInterval time.Duration
	logger       *slog.Logger
}

// Create inserts a request. A second pending request for the same pet and applicant
// is refused here and by the partial unique index created in migrations.
func (r *RequestRepository) Create(ctx context.Context, req *domain.Request) (*types.RequestProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.New("cannot save nil request")
	}
	if req.Status == domain.RequestStatusPending {
		var pending int64
		if err := conn(ctx, r.db).Model(&requestRecord{}).
			Where("pet_id = ? AND applicant_id = ? AND status = ?", req.PetID, req.ApplicantID, string(domain.RequestStatusPending)).
			Count(&pending).Error; err != nil {
			return nil, err
		}
		if pending > 0 {
			return nil, ports.ErrDuplicate
		}
	}
	rec := newRequestRecord(req)
	rec.Version = 1
	if err := conn(ctx, r.db).Create(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toProjection(), nil
}

func (r *RequestRepository) Get(ctx context.Context, id string) (*types.RequestProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	rec, err := first[requestRecord](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return rec.toProjection(), nil
}

func (r *RequestRepository) Update(ctx context.Context, req *domain.Request, expectedVersion int64) (*types.RequestProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.New("cannot save nil request")
	}
	rec := newRequestRecord(req)
	rec.Version = expectedVersion + 1
	if err := casUpdate(ctx, r.db, &rec, req.ID, expectedVersion); err != nil {
		return nil, err
	}
	return r.Get(ctx, req.ID)
}

// Query orders by request date with missing dates lowest, then creation time, then id.
func (r *RequestRepository) Query(ctx context.Context, query ports.RequestQuery) ([]*types.RequestProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	tx := conn(ctx, r.db).Model(&requestRecord{})
	if query.PetID != "" {
		tx = tx.Where("pet_id = ?", query.PetID)
	}
	if query.ApplicantID != "" {
		tx = tx.Where("applicant_id = ?", query.ApplicantID)
	}
	if query.CreatorID != "" {
		tx = tx.Where("creator_id = ?", query.CreatorID)
	}
	if query.Party != "" {
		tx = tx.Where("(applicant_id = ? OR creator_id = ?)", query.Party, query.Party)
	}
	if len(query.Statuses) > 0 {
		statuses := make([]string, 0, len(query.Statuses))
		for _, s := range query.Statuses {
			statuses = append(statuses, string(s))
		}
		tx = tx.Where("status IN ?", statuses)
	}
	if query.Order == ports.SortNewestFirst {
		tx = tx.Order("request_date DESC NULLS LAST").Order("created_at DESC")
	} else {
		tx = tx.Order("request_date ASC NULLS FIRST").Order("created_at ASC")
	}
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}
	var records []requestRecord
	if err := tx.Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*types.RequestProjection, 0, len(records))
	for i := range records {
		list = append(list, records[i].toProjection())
	}
	return list, nil
}

// Watch polls the query and emits a snapshot whenever the matching ids or versions change.
// The first snapshot is sent immediately; the channel closes when ctx ends.
func (r *RequestRepository) Watch(ctx context.Context, query ports.RequestQuery) (<-chan []*types.RequestProjection, error) {
	initial, err := r.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	updates := make(chan []*types.RequestProjection, 1)
	updates <- initial
	last := fingerprint(initial)

	go func() {
		defer close(updates)
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			snapshot, err := r.Query(ctx, query)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.LogAttrs(ctx, slog.LevelWarn, "request watch poll failed", slog.String("error", err.Error()))
				continue
			}
			current := fingerprint(snapshot)
			if current == last {
				continue
			}
			last = current
			select {
			case <-updates:
			default:
			}
			updates <- snapshot
		}
	}()
	return updates, nil
}

func fingerprint(list []*types.RequestProjection) string {
	var b strings.Builder
	for _, item := range list {
		b.WriteString(item.Entity.ID)
		b.WriteByte('@')
		b.WriteString(strconv.FormatInt(item.Metadata.Version, 10))
		b.WriteByte(';')
	}
	return b.String()
}
