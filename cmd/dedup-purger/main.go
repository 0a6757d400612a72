package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/go-gin-adoption-server/internal/app/api"
	adoptionpostgres "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/persistence/postgres"
	platformpostgres "github.com/Apurer/go-gin-adoption-server/internal/platform/postgres"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	db, cleanup := platformpostgres.ConnectDSN(ctx, cfg.PostgresDSN, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot purge notification sessions")
	}

	store := adoptionpostgres.NewDedupStore(db, adoptionpostgres.WithTTL(cfg.DedupTTL))
	purged, err := store.PurgeExpired(ctx, time.Now())
	if err != nil {
		log.Fatalf("failed to purge notification sessions: %v", err)
	}
	logger.Info("notification session purge completed", slog.Int64("sessions", purged))
}
