package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

var _ ports.DedupCache = (*DedupStore)(nil)

const defaultDedupTTL = 24 * time.Hour

// DedupStore keeps notification sessions and their seen markers in PostgreSQL.
// Rows expire after the TTL so abandoned sessions are eventually purged.
type DedupStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

type DedupOption func(*DedupStore)

// WithTTL sets how long a session and its markers live without being closed.
func WithTTL(ttl time.Duration) DedupOption {
	return func(s *DedupStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithDedupClock overrides the time source for deterministic testing.
func WithDedupClock(now func() time.Time) DedupOption {
	return func(s *DedupStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewDedupStore(db *gorm.DB, opts ...DedupOption) *DedupStore {
	s := &DedupStore{db: db, ttl: defaultDedupTTL, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open starts or refreshes a session for userID.
func (s *DedupStore) Open(ctx context.Context, sessionID, userID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	now := s.now().UTC()
	rec := sessionRecord{SessionID: sessionID, UserID: userID, ExpiresAt: now.Add(s.ttl), CreatedAt: now}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "expires_at"}),
		}).Create(&rec).Error
}

func (s *DedupStore) UserID(ctx context.Context, sessionID string) (string, error) {
	rec, err := s.session(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return rec.UserID, nil
}

// Seen inserts the marker and reports whether it already existed.
func (s *DedupStore) Seen(ctx context.Context, sessionID, entityID, eventType string) (bool, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return false, err
	}
	rec := dedupRecord{
		SessionID: sessionID,
		EntityID:  entityID,
		EventType: eventType,
		ExpiresAt: sess.ExpiresAt,
		CreatedAt: s.now().UTC(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 0, nil
}

// Close drops the session and every marker it recorded.
func (s *DedupStore) Close(ctx context.Context, sessionID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&dedupRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&sessionRecord{}).Error
	})
}

// PurgeExpired removes sessions and markers whose TTL elapsed before now.
// It returns the number of sessions removed.
func (s *DedupStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	var purged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expires_at <= ?", now.UTC()).Delete(&dedupRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("expires_at <= ?", now.UTC()).Delete(&sessionRecord{})
		purged = result.RowsAffected
		return result.Error
	})
	return purged, err
}

func (s *DedupStore) session(ctx context.Context, sessionID string) (*sessionRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var rec sessionRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND expires_at > ?", sessionID, s.now().UTC()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ports.ErrSessionClosed
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *DedupStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres dedup store not configured")
	}
	return nil
}
