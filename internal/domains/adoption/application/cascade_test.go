package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/memory"
	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// hookedHandovers runs onCompleted once, right after a handover is first stored as completed.
type hookedHandovers struct {
	ports.HandoverRepository
	once        sync.Once
	onCompleted func()
}

func (h *hookedHandovers) Update(ctx context.Context, handover *domain.Handover, expectedVersion int64) (*types.HandoverProjection, error) {
	saved, err := h.HandoverRepository.Update(ctx, handover, expectedVersion)
	if err == nil && handover.Status == domain.HandoverStatusCompleted && h.onCompleted != nil {
		h.once.Do(h.onCompleted)
	}
	return saved, err
}

// hookedRequests runs onCompleted once, right after a request is first stored as completed.
type hookedRequests struct {
	ports.RequestRepository
	once        sync.Once
	onCompleted func()
}

func (h *hookedRequests) Update(ctx context.Context, req *domain.Request, expectedVersion int64) (*types.RequestProjection, error) {
	saved, err := h.RequestRepository.Update(ctx, req, expectedVersion)
	if err == nil && req.Status == domain.RequestStatusCompleted && h.onCompleted != nil {
		h.once.Do(h.onCompleted)
	}
	return saved, err
}

func requireAdopted(t *testing.T, f *fixture, petID, requestID, handoverID string) {
	t.Helper()
	require.Equal(t, domain.HandoverStatusCompleted, f.handover(t, handoverID).Status)
	require.Equal(t, domain.RequestStatusCompleted, f.request(t, requestID).Status)
	pet := f.pet(t, petID)
	require.Equal(t, domain.PetStatusAdopted, pet.Status)
	require.Equal(t, requestID, pet.ActiveRequestID)
}

func TestCompleteHandover_CancelRequestMidCascadeIsRefused(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	hooked := &hookedHandovers{HandoverRepository: repos.Handovers}
	repos.Handovers = hooked
	f := newFixtureWithRepos(t, store, repos)
	ctx := context.Background()

	pet := f.registerPet(t)
	r1 := f.submit(t, pet.ID, applicantA)
	f.approve(t, r1.ID)
	h := f.scheduleConfirmed(t, r1.ID)

	var cancelErr error
	hooked.onCompleted = func() {
		_, cancelErr = f.svc.CancelRequest(ctx, types.CancelRequestInput{RequestID: r1.ID, ActorID: owner})
	}

	_, err := f.svc.CompleteHandover(ctx, types.HandoverActionInput{HandoverID: h.ID, ActorID: applicantA})
	require.NoError(t, err)
	require.Error(t, cancelErr)
	assert.True(t, errors.Is(cancelErr, ErrConflict) || errors.Is(cancelErr, ErrInvalidState), "unexpected error %v", cancelErr)
	requireAdopted(t, f, pet.ID, r1.ID, h.ID)

	_, err = f.svc.CancelRequest(ctx, types.CancelRequestInput{RequestID: r1.ID, ActorID: owner})
	require.ErrorIs(t, err, ErrInvalidState)
	requireAdopted(t, f, pet.ID, r1.ID, h.ID)
}

func TestCompleteHandover_CancelHandoverMidCascadeIsRefused(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	hooked := &hookedRequests{RequestRepository: repos.Requests}
	repos.Requests = hooked
	f := newFixtureWithRepos(t, store, repos, WithHandoverCancelPolicy(CancelPolicyRelease))
	ctx := context.Background()

	pet := f.registerPet(t)
	r1 := f.submit(t, pet.ID, applicantA)
	f.approve(t, r1.ID)
	h := f.scheduleConfirmed(t, r1.ID)

	var cancelErr error
	hooked.onCompleted = func() {
		_, cancelErr = f.svc.CancelHandover(ctx, types.HandoverActionInput{HandoverID: h.ID, ActorID: owner})
	}

	_, err := f.svc.CompleteHandover(ctx, types.HandoverActionInput{HandoverID: h.ID, ActorID: applicantA})
	require.NoError(t, err)
	require.ErrorIs(t, cancelErr, ErrConflict)
	requireAdopted(t, f, pet.ID, r1.ID, h.ID)
}

func TestCancelHandover_RefusedOnceRequestCompleted(t *testing.T) {
	f := newFixture(t, WithHandoverCancelPolicy(CancelPolicyRelease))
	ctx := context.Background()
	pet := f.registerPet(t)
	r1 := f.submit(t, pet.ID, applicantA)
	f.approve(t, r1.ID)
	h := f.scheduleConfirmed(t, r1.ID)

	// A completion that stopped after the request write: request completed, handover still open.
	stored, err := f.repos.Requests.Get(ctx, r1.ID)
	require.NoError(t, err)
	_, err = stored.Entity.Complete(time.Now())
	require.NoError(t, err)
	_, err = f.repos.Requests.Update(ctx, stored.Entity, stored.Metadata.Version)
	require.NoError(t, err)

	_, err = f.svc.CancelHandover(ctx, types.HandoverActionInput{HandoverID: h.ID, ActorID: owner})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, domain.HandoverStatusConfirmed, f.handover(t, h.ID).Status)
	require.Equal(t, domain.PetStatusInProcess, f.pet(t, pet.ID).Status)

	_, err = f.svc.CompleteHandover(ctx, types.HandoverActionInput{HandoverID: h.ID, ActorID: owner})
	require.NoError(t, err)
	requireAdopted(t, f, pet.ID, r1.ID, h.ID)
}

// completeHandoverDirectly leaves an approved request next to a completed handover,
// the state an older completion order could stop in.
func completeHandoverDirectly(t *testing.T, f *fixture, handoverID string) {
	t.Helper()
	ctx := context.Background()
	stored, err := f.repos.Handovers.Get(ctx, handoverID)
	require.NoError(t, err)
	_, err = stored.Entity.Complete(false, time.Now())
	require.NoError(t, err)
	_, err = f.repos.Handovers.Update(ctx, stored.Entity, stored.Metadata.Version)
	require.NoError(t, err)
}

func TestCancelRequest_FinishesCompletionInsteadOfReleasing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pet := f.registerPet(t)
	r1 := f.submit(t, pet.ID, applicantA)
	f.approve(t, r1.ID)
	h := f.scheduleConfirmed(t, r1.ID)
	completeHandoverDirectly(t, f, h.ID)

	_, err := f.svc.CancelRequest(ctx, types.CancelRequestInput{RequestID: r1.ID, ActorID: applicantA})
	require.ErrorIs(t, err, ErrInvalidState)
	requireAdopted(t, f, pet.ID, r1.ID, h.ID)
	require.Equal(t, 1, countEvents(f.recorder, "adoption.pet.adopted"))
	require.Equal(t, 1, countEvents(f.recorder, "adoption.request.completed"))
	require.Zero(t, countEvents(f.recorder, "adoption.request.cancelled"))
}

func TestReconcile_FinishesCompletionForApprovedRequest(t *testing.T) {
	for _, released := range []bool{false, true} {
		name := "pet held"
		if released {
			name = "pet released"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			pet := f.registerPet(t)
			r1 := f.submit(t, pet.ID, applicantA)
			f.approve(t, r1.ID)
			h := f.scheduleConfirmed(t, r1.ID)
			completeHandoverDirectly(t, f, h.ID)
			if released {
				stored, err := f.repos.Pets.Get(ctx, pet.ID)
				require.NoError(t, err)
				_, err = stored.Entity.Release(r1.ID)
				require.NoError(t, err)
				_, err = f.repos.Pets.Update(ctx, stored.Entity, stored.Metadata.Version)
				require.NoError(t, err)
			}

			result, err := f.svc.Reconcile(ctx, r1.ID)
			require.NoError(t, err)
			require.Equal(t, domain.RequestStatusCompleted, result.Status)
			require.Equal(t, []string{"request completed by handover " + h.ID, "pet adopted"}, result.Applied)
			requireAdopted(t, f, pet.ID, r1.ID, h.ID)

			again, err := f.svc.Reconcile(ctx, r1.ID)
			require.NoError(t, err)
			require.Empty(t, again.Applied)
		})
	}
}

func TestReconcile_CompletesOpenHandoverOfCompletedRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pet := f.registerPet(t)
	r1 := f.submit(t, pet.ID, applicantA)
	f.approve(t, r1.ID)
	h := f.scheduleConfirmed(t, r1.ID)

	stored, err := f.repos.Requests.Get(ctx, r1.ID)
	require.NoError(t, err)
	_, err = stored.Entity.Complete(time.Now())
	require.NoError(t, err)
	_, err = f.repos.Requests.Update(ctx, stored.Entity, stored.Metadata.Version)
	require.NoError(t, err)

	result, err := f.svc.Reconcile(ctx, r1.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"handover " + h.ID + " completed", "pet adopted"}, result.Applied)
	requireAdopted(t, f, pet.ID, r1.ID, h.ID)
	require.Equal(t, 1, countEvents(f.recorder, "adoption.handover.completed"))
}

// race starts both operations together and waits for them.
func race(first, second func()) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, op := range []func(){first, second} {
		wg.Add(1)
		go func(op func()) {
			defer wg.Done()
			<-start
			op()
		}(op)
	}
	close(start)
	wg.Wait()
}

func requireRaceError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		assert.True(t, errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidState), "unexpected error %v", err)
	}
}

func TestRace_CancelRequestAgainstCompleteHandover(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t)
		ctx := context.Background()
		pet := f.registerPet(t)
		r1 := f.submit(t, pet.ID, applicantA)
		f.approve(t, r1.ID)
		h := f.scheduleConfirmed(t, r1.ID)

		var cancelErr, completeErr error
		race(func() {
			_, cancelErr = f.svc.CancelRequest(ctx, types.CancelRequestInput{RequestID: r1.ID, ActorID: owner})
		}, func() {
			_, completeErr = f.svc.CompleteHandover(ctx, types.HandoverActionInput{HandoverID: h.ID, ActorID: applicantA})
		})
		requireRaceError(t, cancelErr)
		requireRaceError(t, completeErr)

		if completeErr == nil {
			require.Error(t, cancelErr)
			requireAdopted(t, f, pet.ID, r1.ID, h.ID)
			continue
		}
		require.NoError(t, cancelErr)
		require.Equal(t, domain.RequestStatusCancelled, f.request(t, r1.ID).Status)
		require.Equal(t, domain.HandoverStatusCancelled, f.handover(t, h.ID).Status)
		require.True(t, f.pet(t, pet.ID).IsAvailable())
	}
}

func TestRace_CancelRequestAgainstApproval(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t)
		ctx := context.Background()
		pet := f.registerPet(t)
		r1 := f.submit(t, pet.ID, applicantA)

		var cancelErr, approveErr error
		race(func() {
			_, cancelErr = f.svc.CancelRequest(ctx, types.CancelRequestInput{RequestID: r1.ID, ActorID: applicantA})
		}, func() {
			_, approveErr = f.svc.Decide(ctx, types.DecideInput{RequestID: r1.ID, DeciderID: owner, Decision: domain.DecisionApprove})
		})
		requireRaceError(t, cancelErr)
		requireRaceError(t, approveErr)

		req := f.request(t, r1.ID)
		stored := f.pet(t, pet.ID)
		switch req.Status {
		case domain.RequestStatusCancelled:
			require.NoError(t, cancelErr)
			require.True(t, stored.IsAvailable(), "a cancelled request must not keep the pet")
		case domain.RequestStatusApproved:
			require.Error(t, cancelErr)
			require.NoError(t, approveErr)
			require.True(t, stored.HeldBy(r1.ID))
		default:
			t.Fatalf("unexpected request status %s", req.Status)
		}
	}
}

func TestRace_CancelHandoverAgainstCompleteHandover(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t, WithHandoverCancelPolicy(CancelPolicyRelease))
		ctx := context.Background()
		pet := f.registerPet(t)
		r1 := f.submit(t, pet.ID, applicantA)
		f.approve(t, r1.ID)
		h := f.scheduleConfirmed(t, r1.ID)

		var cancelErr, completeErr error
		race(func() {
			_, cancelErr = f.svc.CancelHandover(ctx, types.HandoverActionInput{HandoverID: h.ID, ActorID: owner})
		}, func() {
			_, completeErr = f.svc.CompleteHandover(ctx, types.HandoverActionInput{HandoverID: h.ID, ActorID: applicantA})
		})
		requireRaceError(t, cancelErr)
		requireRaceError(t, completeErr)

		if completeErr == nil {
			require.Error(t, cancelErr)
			requireAdopted(t, f, pet.ID, r1.ID, h.ID)
			continue
		}
		require.NoError(t, cancelErr)
		require.Equal(t, domain.HandoverStatusCancelled, f.handover(t, h.ID).Status)
		require.Equal(t, domain.RequestStatusCancelled, f.request(t, r1.ID).Status)
		require.True(t, f.pet(t, pet.ID).IsAvailable())
	}
}
