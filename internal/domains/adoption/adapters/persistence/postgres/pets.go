package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// PetRepository persists pet listings in the pets table.
type PetRepository struct {
	db *gorm.DB
}

func (r *PetRepository) Create(ctx context.Context, pet *domain.Pet) (*types.PetProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	if pet == nil {
		return nil, errors.New("cannot save nil pet")
	}
	rec := newPetRecord(pet)
	rec.Version = 1
	if err := conn(ctx, r.db).Create(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toProjection(), nil
}

func (r *PetRepository) Get(ctx context.Context, id string) (*types.PetProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	rec, err := first[petRecord](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return rec.toProjection(), nil
}

func (r *PetRepository) Update(ctx context.Context, pet *domain.Pet, expectedVersion int64) (*types.PetProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	if pet == nil {
		return nil, errors.New("cannot save nil pet")
	}
	rec := newPetRecord(pet)
	rec.Version = expectedVersion + 1
	if err := casUpdate(ctx, r.db, &rec, pet.ID, expectedVersion); err != nil {
		return nil, err
	}
	return r.Get(ctx, pet.ID)
}

func (r *PetRepository) Delete(ctx context.Context, id string) error {
	if err := ensureDB(r.db); err != nil {
		return err
	}
	result := conn(ctx, r.db).Delete(&petRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Query returns matching pets, most recently listed first.
func (r *PetRepository) Query(ctx context.Context, query ports.PetQuery) ([]*types.PetProjection, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	tx := conn(ctx, r.db).Model(&petRecord{})
	if query.CreatorID != "" {
		tx = tx.Where("creator_id = ?", query.CreatorID)
	}
	if query.VisibleOnly {
		tx = tx.Where("visibility = ?", string(domain.VisibilityVisible))
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
	var records []petRecord
	if err := tx.Order("created_at DESC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*types.PetProjection, 0, len(records))
	for i := range records {
		list = append(list, records[i].toProjection())
	}
	return list, nil
}
