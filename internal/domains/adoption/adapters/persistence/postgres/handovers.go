package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// HandoverRepository persists handovers in the handovers table.
type HandoverRepository struct {
	db *gorm.DB
}

// Create inserts a handover. The partial unique index on open handovers per request
// turns a concurrent second schedule into ErrDuplicate.
func (r *HandoverRepository) Create(ctx context.Context, handover *domain.Handover) (*types.HandoverProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	if handover == nil {
		return nil, errors.New("cannot save nil handover")
	}
	var open int64
	if err := conn(ctx, r.db).Model(&handoverRecord{}).
		Where("request_id = ? AND status IN ?", handover.RequestID, openHandoverStatuses()).
		Count(&open).Error; err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, ports.ErrDuplicate
	}
	rec := newHandoverRecord(handover)
	rec.Version = 1
	if err := conn(ctx, r.db).Create(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toProjection(), nil
}

func (r *HandoverRepository) Get(ctx context.Context, id string) (*types.HandoverProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	rec, err := first[handoverRecord](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return rec.toProjection(), nil
}

func (r *HandoverRepository) Update(ctx context.Context, handover *domain.Handover, expectedVersion int64) (*types.HandoverProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	if handover == nil {
		return nil, errors.New("cannot save nil handover")
	}
	rec := newHandoverRecord(handover)
	rec.Version = expectedVersion + 1
	if err := casUpdate(ctx, r.db, &rec, handover.ID, expectedVersion); err != nil {
		return nil, err
	}
	return r.Get(ctx, handover.ID)
}

func (r *HandoverRepository) Query(ctx context.Context, query ports.HandoverQuery) ([]*types.HandoverProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	tx := conn(ctx, r.db).Model(&handoverRecord{})
	if query.RequestID != "" {
		tx = tx.Where("request_id = ?", query.RequestID)
	}
	if query.PetID != "" {
		tx = tx.Where("pet_id = ?", query.PetID)
	}
	if len(query.Statuses) > 0 {
		statuses := make([]string, 0, len(query.Statuses))
		for _, s := range query.Statuses {
			statuses = append(statuses, string(s))
		}
		tx = tx.Where("status IN ?", statuses)
	}
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}
	var records []handoverRecord
	if err := tx.Order("created_at DESC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*types.HandoverProjection, 0, len(records))
	for i := range records {
		list = append(list, records[i].toProjection())
	}
	return list, nil
}

func openHandoverStatuses() []string {
	open := domain.OpenHandoverStatuses()
	out := make([]string, 0, len(open))
	for _, s := range open {
		out = append(out, string(s))
	}
	return out
}
