package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

var (
	_ ports.PetRepository      = (*PetRepository)(nil)
	_ ports.RequestRepository  = (*RequestRepository)(nil)
	_ ports.HandoverRepository = (*HandoverRepository)(nil)
)

const defaultPollInterval = 2 * time.Second

type options struct {
	pollInterval time.Duration
	logger       *slog.Logger
}

type Option func(*options)

// WithPollInterval sets how often request watchers re-query the table.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewRepositories wires the PostgreSQL-backed repositories. The caller owns the DB lifecycle
// and is expected to have run migrations.
func NewRepositories(db *gorm.DB, opts ...Option) ports.Repositories {
	o := options{
		pollInterval: defaultPollInterval,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return ports.Repositories{
		Pets:      &PetRepository{db: db},
		Requests:  &RequestRepository{db: db, pollInterval: o.pollInterval, logger: o.logger},
		Handovers: &HandoverRepository{db: db},
	}
}

func ensureDB(db *gorm.DB) error {
	if db == nil {
		return errors.New("postgres repository not configured")
	}
	return nil
}

// casUpdate overwrites rec only when the stored version still equals expected.
// rec must carry its primary key and the bumped version.
func casUpdate[R any](ctx context.Context, db *gorm.DB, rec *R, id string, expected int64) error {
	result := conn(ctx, db).Model(rec).
		Where("version = ?", expected).
		Select("*").Omit("id", "created_at").
		Updates(rec)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := conn(ctx, db).Model(new(R)).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ports.ErrNotFound
	}
	return ports.ErrVersionConflict
}

func first[R any](ctx context.Context, db *gorm.DB, id string) (*R, error) {
	var rec R
	if err := conn(ctx, db).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ports.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ports.ErrDuplicate
	}
	return err
}
