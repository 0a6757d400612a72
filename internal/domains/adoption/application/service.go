package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
	"github.com/Apurer/go-gin-adoption-server/internal/shared/projection"
)

var _ ports.Service = (*Service)(nil)

const maxWriteAttempts = 3

// Service is the lifecycle coordinator: it moves pets, requests and handovers together.
type Service struct {
	pets             ports.PetRepository
	requests         ports.RequestRepository
	handovers        ports.HandoverRepository
	tx               ports.TxManager
	guard            *requestGuard
	effects          *dispatcher
	logger           *slog.Logger
	now              func() time.Time
	newID            func() string
	strictCompletion bool
	cancelPolicy     HandoverCancelPolicy
}

// Option configures optional collaborators.
type Option func(*Service)

// WithTxManager runs cascades inside a multi-document transaction.
func WithTxManager(tx ports.TxManager) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithNotifier sets the user notification channel.
func WithNotifier(n ports.Notifier) Option {
	return func(s *Service) {
		s.effects.notifier = n
	}
}

// WithMailer sets the e-mail composer.
func WithMailer(m ports.Mailer) Option {
	return func(s *Service) {
		s.effects.mailer = m
	}
}

// WithEventPublisher sets the domain event sink.
func WithEventPublisher(p ports.EventPublisher) Option {
	return func(s *Service) {
		s.effects.publisher = p
	}
}

// WithLogger sets the logger used for side effect failures and recovery steps.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
			s.effects.logger = logger
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new entity ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithStrictHandoverCompletion toggles whether only confirmed handovers may complete.
func WithStrictHandoverCompletion(strict bool) Option {
	return func(s *Service) {
		s.strictCompletion = strict
	}
}

// WithHandoverCancelPolicy selects what cancelling a handover does to the request and pet.
func WithHandoverCancelPolicy(policy HandoverCancelPolicy) Option {
	return func(s *Service) {
		if policy != "" {
			s.cancelPolicy = policy
		}
	}
}

// WithSideEffectRunner replaces the goroutine launcher used for side effects.
func WithSideEffectRunner(run func(func())) Option {
	return func(s *Service) {
		if run != nil {
			s.effects.run = run
		}
	}
}

// WithSideEffectTimeout bounds how long one batch of side effects may take.
func WithSideEffectTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.effects.timeout = d
		}
	}
}

// NewService wires the coordinator with its repositories and options.
func NewService(repos ports.Repositories, opts ...Option) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &Service{
		pets:             repos.Pets,
		requests:         repos.Requests,
		handovers:        repos.Handovers,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.NewString,
		strictCompletion: true,
		cancelPolicy:     CancelPolicyRetain,
		guard:            &requestGuard{busy: make(map[string]struct{})},
		effects: &dispatcher{
			logger:  logger,
			run:     runAsync,
			timeout: defaultSideEffectTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterPet publishes a new listing for its creator.
func (s *Service) RegisterPet(ctx context.Context, input types.RegisterPetInput) (*types.PetProjection, error) {
	pet, err := domain.NewPet(s.newID(), input.Name, input.Species, strings.TrimSpace(input.CreatorID))
	if err != nil {
		return nil, mapError(err)
	}
	pet.Breed = strings.TrimSpace(input.Breed)
	pet.Description = strings.TrimSpace(input.Description)
	pet.ReplacePhotos(input.PhotoURLs)
	if input.Hidden {
		_ = pet.SetVisibility(domain.VisibilityHidden)
	}
	saved, err := s.pets.Create(ctx, pet)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// SetVisibility hides or shows a listing; only the owner may do so.
func (s *Service) SetVisibility(ctx context.Context, input types.SetVisibilityInput) (*types.PetProjection, error) {
	current, err := s.pets.Get(ctx, input.PetID)
	if err != nil {
		return nil, mapError(err)
	}
	if current.Entity.CreatorID != input.ActorID {
		return nil, forbidden("only the owner can change the visibility of %s", current.Entity.Name)
	}
	saved, _, err := compareAndSet(ctx, s.pets, input.PetID, func(p *domain.Pet) (bool, error) {
		if p.Visibility == input.Visibility {
			return false, nil
		}
		return applied(p.SetVisibility(input.Visibility))
	})
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// DeletePet removes a listing that no request is competing for or holding.
func (s *Service) DeletePet(ctx context.Context, input types.DeletePetInput) error {
	current, err := s.pets.Get(ctx, input.PetID)
	if err != nil {
		return mapError(err)
	}
	pet := current.Entity
	if pet.CreatorID != input.ActorID {
		return forbidden("only the owner can delete %s", pet.Name)
	}
	if pet.Status == domain.PetStatusInProcess {
		return invalidState("%s is in process with an approved request", pet.Name)
	}
	pending, err := s.requests.Query(ctx, ports.RequestQuery{
		PetID:    pet.ID,
		Statuses: []domain.RequestStatus{domain.RequestStatusPending},
		Limit:    1,
	})
	if err != nil {
		return mapError(err)
	}
	if len(pending) > 0 {
		return invalidState("%s has pending adoption requests", pet.Name)
	}
	return mapError(s.pets.Delete(ctx, pet.ID))
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, fn)
}

// cascade runs a multi-document change on one request. With a transaction manager the
// transaction serializes it against other cascades through row locks. Without one an
// in-process guard does, and a cascade already running on the request makes this one a conflict.
func (s *Service) cascade(ctx context.Context, requestID string, fn func(ctx context.Context) error) error {
	if s.tx != nil {
		return s.tx.RunInTx(ctx, fn)
	}
	leave, ok := s.guard.enter(requestID)
	if !ok {
		return conflict("request %s is being updated by another operation", requestID)
	}
	defer leave()
	return fn(ctx)
}

// requestGuard marks requests with a cascade in flight.
type requestGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func (g *requestGuard) enter(requestID string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, taken := g.busy[requestID]; taken {
		return nil, false
	}
	g.busy[requestID] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.busy, requestID)
		g.mu.Unlock()
	}, true
}

// touch rewrites a document unchanged so its version moves. Inside a transaction the write
// holds the row until commit, ordering the caller against writers of the same document.
func touch[T any](check func(T) error) func(T) (bool, error) {
	return func(entity T) (bool, error) {
		return applied(check(entity))
	}
}

type versionedStore[T any] interface {
	Get(ctx context.Context, id string) (*projection.Projection[T], error)
	Update(ctx context.Context, entity T, expectedVersion int64) (*projection.Projection[T], error)
}

// compareAndSet loads a document, lets mutate decide, and writes back against the loaded version.
// A lost race reloads and decides again. When mutate reports no change the write is skipped,
// which is what makes every cascade step safe to re-run.
func compareAndSet[T any](ctx context.Context, store versionedStore[T], id string, mutate func(T) (bool, error)) (*projection.Projection[T], bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		current, err := store.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		changed, err := mutate(current.Entity)
		if err != nil {
			return current, false, err
		}
		if !changed {
			return current, false, nil
		}
		saved, err := store.Update(ctx, current.Entity, current.Metadata.Version)
		if err == nil {
			return saved, true, nil
		}
		if !errors.Is(err, ports.ErrVersionConflict) {
			return nil, false, err
		}
		lastErr = err
	}
	return nil, false, lastErr
}

func applied(err error) (bool, error) {
	return err == nil, err
}
