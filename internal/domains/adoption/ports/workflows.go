package ports

import (
	"context"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
)

// WorkflowOrchestrator runs the multi-document cascades durably.
type WorkflowOrchestrator interface {
	DecideRequest(ctx context.Context, input types.DecideInput) (*types.RequestProjection, error)
	CompleteHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error)
}
