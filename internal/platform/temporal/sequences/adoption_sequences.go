package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	adoptionactivities "github.com/Apurer/go-gin-adoption-server/internal/platform/temporal/activities/adoption"
)

func cascadeOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
}

func reconcileOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    10,
		},
	}
}

// RunDecisionSequence records the decision, then reconciles the request so a cascade
// interrupted by a crash between documents is finished.
func RunDecisionSequence(ctx workflow.Context, input types.DecideInput) (*types.RequestProjection, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("decision sequence started", "requestId", input.RequestID, "decision", string(input.Decision))

	var result types.RequestProjection
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, cascadeOptions()),
		adoptionactivities.DecideRequestActivityName, input).Get(ctx, &result)
	if err != nil {
		logger.Error("decision sequence failed", "requestId", input.RequestID, "error", err)
		return nil, err
	}
	if err := reconcile(ctx, input.RequestID); err != nil {
		return &result, err
	}
	logger.Info("decision sequence completed", "requestId", input.RequestID)
	return &result, nil
}

// RunHandoverCompletionSequence completes the handover, then reconciles its request.
func RunHandoverCompletionSequence(ctx workflow.Context, input types.HandoverActionInput) (*types.HandoverProjection, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("handover completion sequence started", "handoverId", input.HandoverID)

	var result types.HandoverProjection
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, cascadeOptions()),
		adoptionactivities.CompleteHandoverActivityName, input).Get(ctx, &result)
	if err != nil {
		logger.Error("handover completion sequence failed", "handoverId", input.HandoverID, "error", err)
		return nil, err
	}
	if result.Entity != nil {
		if err := reconcile(ctx, result.Entity.RequestID); err != nil {
			return &result, err
		}
	}
	logger.Info("handover completion sequence completed", "handoverId", input.HandoverID)
	return &result, nil
}

func reconcile(ctx workflow.Context, requestID string) error {
	var repaired types.ReconcileResult
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, reconcileOptions()),
		adoptionactivities.ReconcileRequestActivityName, requestID).Get(ctx, &repaired)
	if err != nil {
		workflow.GetLogger(ctx).Error("reconcile failed", "requestId", requestID, "error", err)
		return err
	}
	if len(repaired.Applied) > 0 {
		workflow.GetLogger(ctx).Warn("reconcile repaired cascade", "requestId", requestID, "applied", repaired.Applied)
	}
	return nil
}
