package adoption

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

const (
	// DecideRequestActivityName records an owner's decision and runs the approval cascade.
	DecideRequestActivityName = "adoption.activities.DecideRequest"
	// CompleteHandoverActivityName runs the handover completion cascade.
	CompleteHandoverActivityName = "adoption.activities.CompleteHandover"
	// ReconcileRequestActivityName re-applies every cascade step implied by a request's status.
	ReconcileRequestActivityName = "adoption.activities.ReconcileRequest"
)

// Activities exposes the lifecycle coordinator to Temporal.
type Activities struct {
	service ports.Service
}

func NewActivities(service ports.Service) *Activities {
	return &Activities{service: service}
}

// DecideRequest applies the decision; coordinator rejections are not retried.
func (a *Activities) DecideRequest(ctx context.Context, input types.DecideInput) (*types.RequestProjection, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		return nil, errors.New("adoption activities not initialized")
	}
	logger.Info("DecideRequest activity started", "requestId", input.RequestID, "decision", string(input.Decision))
	result, err := a.service.Decide(ctx, input)
	if err != nil {
		logger.Error("DecideRequest activity failed", "requestId", input.RequestID, "error", err)
		return nil, toActivityError(err)
	}
	logger.Info("DecideRequest activity completed", "requestId", input.RequestID, "status", string(result.Entity.Status))
	return result, nil
}

func (a *Activities) CompleteHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		return nil, errors.New("adoption activities not initialized")
	}
	logger.Info("CompleteHandover activity started", "handoverId", input.HandoverID)
	result, err := a.service.CompleteHandover(ctx, input)
	if err != nil {
		logger.Error("CompleteHandover activity failed", "handoverId", input.HandoverID, "error", err)
		return nil, toActivityError(err)
	}
	logger.Info("CompleteHandover activity completed", "handoverId", input.HandoverID, "requestId", result.Entity.RequestID)
	return result, nil
}

// ReconcileRequest is safe to retry: every step it applies is a no-op once done.
func (a *Activities) ReconcileRequest(ctx context.Context, requestID string) (*types.ReconcileResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		return nil, errors.New("adoption activities not initialized")
	}
	result, err := a.service.Reconcile(ctx, requestID)
	if err != nil {
		logger.Error("ReconcileRequest activity failed", "requestId", requestID, "error", err)
		return nil, toActivityError(err)
	}
	if len(result.Applied) > 0 {
		logger.Warn("ReconcileRequest repaired cascade", "requestId", requestID, "applied", result.Applied)
	}
	return result, nil
}
