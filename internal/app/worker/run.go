package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-adoption-server/internal/app/api"
	platformobservability "github.com/Apurer/go-gin-adoption-server/internal/platform/observability"
	adoptionactivities "github.com/Apurer/go-gin-adoption-server/internal/platform/temporal/activities/adoption"
	adoptionworkflows "github.com/Apurer/go-gin-adoption-server/internal/platform/temporal/workflows/adoption"
)

// ServiceName identifies the worker in traces and logs.
const ServiceName = "adoption-worker"

// Registrar is the subset of a Temporal worker used to register the lifecycle definitions.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register binds the adoption workflows and activities under their stable names.
func Register(r Registrar, acts *adoptionactivities.Activities) {
	r.RegisterWorkflowWithOptions(adoptionworkflows.DecisionWorkflow, workflow.RegisterOptions{Name: adoptionworkflows.DecisionWorkflowName})
	r.RegisterWorkflowWithOptions(adoptionworkflows.HandoverCompletionWorkflow, workflow.RegisterOptions{Name: adoptionworkflows.HandoverCompletionWorkflowName})
	r.RegisterActivityWithOptions(acts.DecideRequest, activity.RegisterOptions{Name: adoptionactivities.DecideRequestActivityName})
	r.RegisterActivityWithOptions(acts.CompleteHandover, activity.RegisterOptions{Name: adoptionactivities.CompleteHandoverActivityName})
	r.RegisterActivityWithOptions(acts.ReconcileRequest, activity.RegisterOptions{Name: adoptionactivities.ReconcileRequestActivityName})
}

// Run polls the adoption lifecycle task queue until interrupted.
// The worker shares storage and brokers with the API so activities see the same documents.
func Run(ctx context.Context) error {
	cfg, err := api.LoadConfig()
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

	core, cleanup, err := api.BuildCore(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer cleanup()

	// The worker must reach Temporal even when the API is configured to run inline.
	cfg.TemporalDisabled = false
	temporalClient, err := api.ConnectTemporalClient(cfg, instruments)
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, adoptionworkflows.LifecycleTaskQueue, worker.Options{})
	Register(w, adoptionactivities.NewActivities(core.Service))

	logger.Info("worker listening", slog.String("taskQueue", adoptionworkflows.LifecycleTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Temporal worker stopped")
	return nil
}
