package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

const tracerName = "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/observability/service"

// Service decorates the adoption coordinator with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) RegisterPet(ctx context.Context, input types.RegisterPetInput) (*types.PetProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.RegisterPet", attribute.String("pet.creator_id", input.CreatorID))
	defer span.End()

	s.logInfo(ctx, "registering pet", slog.String("creator_id", input.CreatorID), slog.String("species", input.Species))
	result, err := s.inner.RegisterPet(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to register pet", slog.String("creator_id", input.CreatorID))
	}
	span.SetAttributes(attribute.String("pet.id", result.Entity.ID))
	s.logInfo(ctx, "pet registered", slog.String("pet_id", result.Entity.ID))
	return result, nil
}

func (s *Service) SetVisibility(ctx context.Context, input types.SetVisibilityInput) (*types.PetProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.SetVisibility",
		attribute.String("pet.id", input.PetID),
		attribute.String("pet.visibility", string(input.Visibility)),
	)
	defer span.End()

	result, err := s.inner.SetVisibility(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to change visibility", slog.String("pet_id", input.PetID))
	}
	s.logInfo(ctx, "pet visibility changed", slog.String("pet_id", input.PetID), slog.String("visibility", string(input.Visibility)))
	return result, nil
}

func (s *Service) DeletePet(ctx context.Context, input types.DeletePetInput) error {
	ctx, span := s.startSpan(ctx, "Service.DeletePet", attribute.String("pet.id", input.PetID))
	defer span.End()

	if err := s.inner.DeletePet(ctx, input); err != nil {
		return s.handleError(ctx, span, err, "failed to delete pet", slog.String("pet_id", input.PetID))
	}
	s.logInfo(ctx, "pet deleted", slog.String("pet_id", input.PetID))
	return nil
}

// SubmitRequest files a new adoption request with instrumentation.
func (s *Service) SubmitRequest(ctx context.Context, input types.SubmitRequestInput) (*types.RequestProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.SubmitRequest",
		attribute.String("pet.id", input.PetID),
		attribute.String("request.applicant_id", input.ApplicantID),
	)
	defer span.End()

	s.logInfo(ctx, "submitting adoption request", slog.String("pet_id", input.PetID), slog.String("applicant_id", input.ApplicantID))
	result, err := s.inner.SubmitRequest(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to submit adoption request", slog.String("pet_id", input.PetID))
	}
	s.metrics.recordSubmitted(ctx)
	span.SetAttributes(attribute.String("request.id", result.Entity.ID))
	s.logInfo(ctx, "adoption request submitted", slog.String("request_id", result.Entity.ID))
	return result, nil
}

// Decide records the owner's verdict with instrumentation.
func (s *Service) Decide(ctx context.Context, input types.DecideInput) (*types.RequestProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.Decide",
		attribute.String("request.id", input.RequestID),
		attribute.String("request.decision", string(input.Decision)),
	)
	defer span.End()

	s.logInfo(ctx, "deciding adoption request", slog.String("request_id", input.RequestID), slog.String("decision", string(input.Decision)))
	result, err := s.inner.Decide(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to decide adoption request", slog.String("request_id", input.RequestID))
	}
	s.metrics.recordDecided(ctx, input.Decision)
	s.logInfo(ctx, "adoption request decided", slog.String("request_id", input.RequestID), slog.String("status", string(result.Entity.Status)))
	return result, nil
}

func (s *Service) CancelRequest(ctx context.Context, input types.CancelRequestInput) (*types.RequestProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.CancelRequest", attribute.String("request.id", input.RequestID))
	defer span.End()

	result, err := s.inner.CancelRequest(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to cancel adoption request", slog.String("request_id", input.RequestID))
	}
	s.metrics.recordCancelled(ctx)
	s.logInfo(ctx, "adoption request cancelled", slog.String("request_id", input.RequestID), slog.String("actor_id", input.ActorID))
	return result, nil
}

func (s *Service) Reconcile(ctx context.Context, requestID string) (*types.ReconcileResult, error) {
	ctx, span := s.startSpan(ctx, "Service.Reconcile", attribute.String("request.id", requestID))
	defer span.End()

	result, err := s.inner.Reconcile(ctx, requestID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to reconcile adoption request", slog.String("request_id", requestID))
	}
	span.SetAttributes(attribute.StringSlice("reconcile.applied", result.Applied))
	if len(result.Applied) > 0 {
		s.metrics.recordReconciled(ctx, len(result.Applied))
	}
	return result, nil
}

func (s *Service) CreateHandover(ctx context.Context, input types.CreateHandoverInput) (*types.HandoverProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.CreateHandover", attribute.String("request.id", input.RequestID))
	defer span.End()

	result, err := s.inner.CreateHandover(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create handover", slog.String("request_id", input.RequestID))
	}
	s.logInfo(ctx, "handover requested", slog.String("handover_id", result.Entity.ID), slog.String("request_id", input.RequestID))
	return result, nil
}

func (s *Service) ConfirmHandover(ctx context.Context, input types.ConfirmHandoverInput) (*types.HandoverProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.ConfirmHandover", attribute.String("handover.id", input.HandoverID))
	defer span.End()

	result, err := s.inner.ConfirmHandover(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to confirm handover", slog.String("handover_id", input.HandoverID))
	}
	s.logInfo(ctx, "handover confirmed", slog.String("handover_id", input.HandoverID))
	return result, nil
}

// CompleteHandover runs the completion cascade with instrumentation.
func (s *Service) CompleteHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.CompleteHandover", attribute.String("handover.id", input.HandoverID))
	defer span.End()

	s.logInfo(ctx, "completing handover", slog.String("handover_id", input.HandoverID))
	result, err := s.inner.CompleteHandover(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to complete handover", slog.String("handover_id", input.HandoverID))
	}
	s.metrics.recordCompleted(ctx)
	s.logInfo(ctx, "handover completed", slog.String("handover_id", input.HandoverID), slog.String("request_id", result.Entity.RequestID))
	return result, nil
}

func (s *Service) CancelHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.CancelHandover", attribute.String("handover.id", input.HandoverID))
	defer span.End()

	result, err := s.inner.CancelHandover(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to cancel handover", slog.String("handover_id", input.HandoverID))
	}
	s.logInfo(ctx, "handover cancelled", slog.String("handover_id", input.HandoverID))
	return result, nil
}

func (s *Service) GetPet(ctx context.Context, petID string) (*types.PetProjection, error) {
	return observeRead(s, ctx, "Service.GetPet", func(ctx context.Context) (*types.PetProjection, error) {
		return s.inner.GetPet(ctx, petID)
	}, attribute.String("pet.id", petID))
}

func (s *Service) AvailablePets(ctx context.Context) ([]*types.PetProjection, error) {
	return observeList(s, ctx, "Service.AvailablePets", s.inner.AvailablePets)
}

func (s *Service) AdoptedPets(ctx context.Context, ownerID string) ([]*types.PetProjection, error) {
	return observeList(s, ctx, "Service.AdoptedPets", func(ctx context.Context) ([]*types.PetProjection, error) {
		return s.inner.AdoptedPets(ctx, ownerID)
	}, attribute.String("owner.id", ownerID))
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (*types.RequestProjection, error) {
	return observeRead(s, ctx, "Service.GetRequest", func(ctx context.Context) (*types.RequestProjection, error) {
		return s.inner.GetRequest(ctx, requestID)
	}, attribute.String("request.id", requestID))
}

func (s *Service) PendingRequests(ctx context.Context) ([]*types.RequestProjection, error) {
	return observeList(s, ctx, "Service.PendingRequests", s.inner.PendingRequests)
}

func (s *Service) RequestsForPet(ctx context.Context, petID string) ([]*types.RequestProjection, error) {
	return observeList(s, ctx, "Service.RequestsForPet", func(ctx context.Context) ([]*types.RequestProjection, error) {
		return s.inner.RequestsForPet(ctx, petID)
	}, attribute.String("pet.id", petID))
}

func (s *Service) RequestsForUser(ctx context.Context, userID string) ([]*types.RequestProjection, error) {
	return observeList(s, ctx, "Service.RequestsForUser", func(ctx context.Context) ([]*types.RequestProjection, error) {
		return s.inner.RequestsForUser(ctx, userID)
	}, attribute.String("user.id", userID))
}

func (s *Service) RequestsForOwner(ctx context.Context, ownerID string) ([]*types.RequestProjection, error) {
	return observeList(s, ctx, "Service.RequestsForOwner", func(ctx context.Context) ([]*types.RequestProjection, error) {
		return s.inner.RequestsForOwner(ctx, ownerID)
	}, attribute.String("owner.id", ownerID))
}

func (s *Service) GetHandover(ctx context.Context, handoverID string) (*types.HandoverProjection, error) {
	return observeRead(s, ctx, "Service.GetHandover", func(ctx context.Context) (*types.HandoverProjection, error) {
		return s.inner.GetHandover(ctx, handoverID)
	}, attribute.String("handover.id", handoverID))
}

func (s *Service) HandoversForRequest(ctx context.Context, requestID string) ([]*types.HandoverProjection, error) {
	return observeList(s, ctx, "Service.HandoversForRequest", func(ctx context.Context) ([]*types.HandoverProjection, error) {
		return s.inner.HandoversForRequest(ctx, requestID)
	}, attribute.String("request.id", requestID))
}

// WatchRequestsForPet opens a subscription; only the setup is traced.
func (s *Service) WatchRequestsForPet(ctx context.Context, petID string) (<-chan []*types.RequestProjection, error) {
	_, span := s.startSpan(ctx, "Service.WatchRequestsForPet", attribute.String("pet.id", petID))
	defer span.End()
	updates, err := s.inner.WatchRequestsForPet(ctx, petID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to watch pet requests", slog.String("pet_id", petID))
	}
	return updates, nil
}

func (s *Service) WatchRequestsForOwner(ctx context.Context, ownerID string) (<-chan []*types.RequestProjection, error) {
	_, span := s.startSpan(ctx, "Service.WatchRequestsForOwner", attribute.String("owner.id", ownerID))
	defer span.End()
	updates, err := s.inner.WatchRequestsForOwner(ctx, ownerID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to watch owner requests", slog.String("owner_id", ownerID))
	}
	return updates, nil
}

func observeRead[T any](s *Service, ctx context.Context, name string, call func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := s.startSpan(ctx, name, attrs...)
	defer span.End()
	result, err := call(ctx)
	if err != nil {
		var zero T
		return zero, s.handleError(ctx, span, err, name+" failed")
	}
	return result, nil
}

func observeList[T any](s *Service, ctx context.Context, name string, call func(context.Context) ([]T, error), attrs ...attribute.KeyValue) ([]T, error) {
	ctx, span := s.startSpan(ctx, name, attrs...)
	defer span.End()
	result, err := call(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, name+" failed")
	}
	span.SetAttributes(attribute.Int("result.count", len(result)))
	return result, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	requestsSubmitted  metric.Int64Counter
	requestsDecided    metric.Int64Counter
	requestsCancelled  metric.Int64Counter
	handoversCompleted metric.Int64Counter
	stepsReconciled    metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	submitted, _ := m.Int64Counter("adoption.requests.submitted", metric.WithDescription("Number of adoption requests filed"))
	decided, _ := m.Int64Counter("adoption.requests.decided", metric.WithDescription("Number of owner decisions"))
	cancelled, _ := m.Int64Counter("adoption.requests.cancelled", metric.WithDescription("Number of withdrawn requests"))
	completed, _ := m.Int64Counter("adoption.handovers.completed", metric.WithDescription("Number of completion cascades run"))
	reconciled, _ := m.Int64Counter("adoption.cascade.steps_reconciled", metric.WithDescription("Cascade steps re-applied by reconciliation"))
	return serviceMetrics{
		requestsSubmitted:  submitted,
		requestsDecided:    decided,
		requestsCancelled:  cancelled,
		handoversCompleted: completed,
		stepsReconciled:    reconciled,
	}
}

func (m serviceMetrics) recordSubmitted(ctx context.Context) {
	addCounter(ctx, m.requestsSubmitted, 1)
}

func (m serviceMetrics) recordDecided(ctx context.Context, decision domain.Decision) {
	addCounter(ctx, m.requestsDecided, 1, attribute.String("decision", string(decision)))
}

func (m serviceMetrics) recordCancelled(ctx context.Context) {
	addCounter(ctx, m.requestsCancelled, 1)
}

func (m serviceMetrics) recordCompleted(ctx context.Context) {
	addCounter(ctx, m.handoversCompleted, 1)
}

func (m serviceMetrics) recordReconciled(ctx context.Context, steps int) {
	addCounter(ctx, m.stepsReconciled, int64(steps))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
