package adoption

import (
	"go.temporal.io/sdk/workflow"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/platform/temporal/sequences"
)

const (
	// DecisionWorkflowName is the public identifier for registering the decision workflow.
	DecisionWorkflowName = "adoption.workflows.Decision"
	// HandoverCompletionWorkflowName is the public identifier for registering the completion workflow.
	HandoverCompletionWorkflowName = "adoption.workflows.HandoverCompletion"
	// LifecycleTaskQueue is the queue consumed by the worker processing adoption workflows.
	LifecycleTaskQueue = "ADOPTION_LIFECYCLE"
)

// DecisionWorkflowInput carries an owner's decision.
type DecisionWorkflowInput struct {
	Command types.DecideInput
	TraceID string
}

// HandoverCompletionWorkflowInput carries a completion request.
type HandoverCompletionWorkflowInput struct {
	Command types.HandoverActionInput
	TraceID string
}

// DecisionWorkflow runs the approval or rejection cascade durably.
func DecisionWorkflow(ctx workflow.Context, input DecisionWorkflowInput) (*types.RequestProjection, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("DecisionWorkflow started", withTraceID(input.TraceID, "requestId", input.Command.RequestID)...)
	result, err := sequences.RunDecisionSequence(ctx, input.Command)
	if err != nil {
		logger.Error("DecisionWorkflow failed", withTraceID(input.TraceID, "requestId", input.Command.RequestID, "error", err)...)
		return nil, err
	}
	logger.Info("DecisionWorkflow completed", withTraceID(input.TraceID, "requestId", input.Command.RequestID)...)
	return result, nil
}

// HandoverCompletionWorkflow runs the handover to request to pet cascade durably.
func HandoverCompletionWorkflow(ctx workflow.Context, input HandoverCompletionWorkflowInput) (*types.HandoverProjection, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("HandoverCompletionWorkflow started", withTraceID(input.TraceID, "handoverId", input.Command.HandoverID)...)
	result, err := sequences.RunHandoverCompletionSequence(ctx, input.Command)
	if err != nil {
		logger.Error("HandoverCompletionWorkflow failed", withTraceID(input.TraceID, "handoverId", input.Command.HandoverID, "error", err)...)
		return nil, err
	}
	logger.Info("HandoverCompletionWorkflow completed", withTraceID(input.TraceID, "handoverId", input.Command.HandoverID)...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
