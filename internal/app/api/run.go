package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	adoptionserver "github.com/Apurer/go-gin-adoption-server/go"
	platformobservability "github.com/Apurer/go-gin-adoption-server/internal/platform/observability"
)

// ServiceName identifies the API in traces and logs.
const ServiceName = "adoption-api"

// Run boots the adoption HTTP API with observability, repositories, brokers and workflows wired.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	core, cleanup, err := BuildCore(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer cleanup()
	workflows, closeWorkflows := BuildWorkflows(cfg, instruments, core.Service)
	defer closeWorkflows()

	handlers := adoptionserver.ApiHandleFunctions{
		PetAPI:      adoptionserver.NewPetAPI(core.Service),
		RequestAPI:  adoptionserver.NewRequestAPI(core.Service, workflows, adoptionserver.WithTriageReviewers(cfg.TriageReviewers...)),
		HandoverAPI: adoptionserver.NewHandoverAPI(core.Service, workflows),
		SessionAPI:  adoptionserver.NewSessionAPI(core.Feed),
	}

	// Tracing must be installed before the routes copy the engine's middleware chain.
	engine := gin.Default()
	engine.Use(otelgin.Middleware(ServiceName))
	router := adoptionserver.NewRouterWithGinEngine(engine, handlers)
	addr := ":" + cfg.Port
	logger.Info("Adoption API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("Adoption API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
