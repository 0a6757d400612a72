package workflows

import (
	"context"
	"errors"
	"fmt"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
	adoptionactivities "github.com/Apurer/go-gin-adoption-server/internal/platform/temporal/activities/adoption"
	adoptionworkflows "github.com/Apurer/go-gin-adoption-server/internal/platform/temporal/workflows/adoption"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalAdoptionWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineAdoptionWorkflows)(nil)
)

// maxStartAttempts bounds how often a start waits for a running workflow with the same id.
const maxStartAttempts = 3

// TemporalAdoptionWorkflows starts adoption cascades on a Temporal cluster.
// Workflow ids derive from the request or handover id, so two concurrent decisions on one
// request run one after the other instead of interleaving.
type TemporalAdoptionWorkflows struct {
	client    client.Client
	taskQueue string
}

func NewTemporalAdoptionWorkflows(c client.Client) *TemporalAdoptionWorkflows {
	return &TemporalAdoptionWorkflows{client: c, taskQueue: adoptionworkflows.LifecycleTaskQueue}
}

func (o *TemporalAdoptionWorkflows) DecideRequest(ctx context.Context, input types.DecideInput) (*types.RequestProjection, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal adoption workflows not configured")
	}
	var result types.RequestProjection
	err := o.run(ctx, "adoption-decision-"+input.RequestID, adoptionworkflows.DecisionWorkflow,
		adoptionworkflows.DecisionWorkflowInput{Command: input, TraceID: workflowTraceID(ctx)}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (o *TemporalAdoptionWorkflows) CompleteHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal adoption workflows not configured")
	}
	var result types.HandoverProjection
	err := o.run(ctx, "adoption-handover-completion-"+input.HandoverID, adoptionworkflows.HandoverCompletionWorkflow,
		adoptionworkflows.HandoverCompletionWorkflowInput{Command: input, TraceID: workflowTraceID(ctx)}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (o *TemporalAdoptionWorkflows) run(ctx context.Context, workflowID string, workflow, input, result any) error {
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
		// Report a running duplicate instead of silently attaching to it.
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	for attempt := 1; ; attempt++ {
		run, err := o.client.ExecuteWorkflow(ctx, options, workflow, input)
		if err == nil {
			return adoptionactivities.FromWorkflowError(run.Get(ctx, result))
		}
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) || attempt >= maxStartAttempts {
			return err
		}
		// Wait for the running cascade; its outcome is not ours, so start again once it closes.
		_ = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId).Get(ctx, nil)
		if ctx.Err() != nil {
			return fmt.Errorf("waiting for workflow %s: %w", workflowID, ctx.Err())
		}
	}
}

// InlineAdoptionWorkflows executes cascades in-process without Temporal, useful for tests or dev fallbacks.
// A crash mid-cascade is repaired by the next Reconcile call instead of a workflow retry.
type InlineAdoptionWorkflows struct {
	service ports.Service
}

func NewInlineAdoptionWorkflows(service ports.Service) *InlineAdoptionWorkflows {
	return &InlineAdoptionWorkflows{service: service}
}

func (o *InlineAdoptionWorkflows) DecideRequest(ctx context.Context, input types.DecideInput) (*types.RequestProjection, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline adoption workflows not configured")
	}
	return o.service.Decide(ctx, input)
}

func (o *InlineAdoptionWorkflows) CompleteHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline adoption workflows not configured")
	}
	return o.service.CompleteHandover(ctx, input)
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
