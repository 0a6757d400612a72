// Package postgres opens the GORM handle behind the adoption repositories.
package postgres

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrEmptyDSN is returned by Connect when no DSN is configured.
var ErrEmptyDSN = errors.New("postgres DSN is empty")

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	pingTimeout time.Duration
	slowQuery   time.Duration
}

// Option tunes the connection pool.
type Option func(*poolSettings)

// WithMaxOpenConns caps concurrent connections; zero leaves database/sql unbounded.
func WithMaxOpenConns(n int) Option {
	return func(s *poolSettings) { s.maxOpen = n }
}

// WithMaxIdleConns bounds the idle pool.
func WithMaxIdleConns(n int) Option {
	return func(s *poolSettings) { s.maxIdle = n }
}

// WithConnMaxLifetime recycles connections older than d.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *poolSettings) { s.maxLifetime = d }
}

// WithPingTimeout bounds the connectivity check made while opening.
func WithPingTimeout(d time.Duration) Option {
	return func(s *poolSettings) { s.pingTimeout = d }
}

// WithSlowQueryThreshold logs statements slower than d.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(s *poolSettings) { s.slowQuery = d }
}

func defaultSettings() poolSettings {
	return poolSettings{
		maxOpen:     20,
		maxIdle:     5,
		maxLifetime: 30 * time.Minute,
		pingTimeout: 5 * time.Second,
		slowQuery:   500 * time.Millisecond,
	}
}

// Config returns the GORM settings shared by the service, the worker and tests.
// TranslateError lets adapters see unique violations as gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return configFor(defaultSettings())
}

func configFor(s poolSettings) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log.New(os.Stderr, "gorm ", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             s.slowQuery,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// Connect opens the pool, applies the options and pings the server.
func Connect(ctx context.Context, dsn string, opts ...Option) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	settings := defaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	db, err := gorm.Open(postgres.Open(dsn), configFor(settings))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(settings.maxOpen)
	sqlDB.SetMaxIdleConns(settings.maxIdle)
	sqlDB.SetConnMaxLifetime(settings.maxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, settings.pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// ConnectDSN is Connect for processes that may run without a database.
// A blank DSN or failed dial yields a nil DB so callers fall back to in-memory storage.
func ConnectDSN(ctx context.Context, dsn string, logger *slog.Logger, opts ...Option) (*gorm.DB, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := Connect(ctx, dsn, opts...)
	switch {
	case errors.Is(err, ErrEmptyDSN):
		logger.Warn("POSTGRES_DSN not set, using in-memory adoption store")
		return nil, func() {}
	case err != nil:
		logger.Warn("postgres unavailable, using in-memory adoption store", slog.String("error", err.Error()))
		return nil, func() {}
	}
	logger.Info("postgres connection established")
	return db, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
