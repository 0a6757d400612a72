package application

import (
	"context"
	"fmt"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// CreateHandover schedules the transfer for an approved request.
func (s *Service) CreateHandover(ctx context.Context, input types.CreateHandoverInput) (*types.HandoverProjection, error) {
	current, err := s.requests.Get(ctx, input.RequestID)
	if err != nil {
		return nil, mapError(err)
	}
	req := current.Entity
	if err := req.ValidateReferences(); err != nil {
		return nil, mapError(err)
	}
	if !req.IsParty(input.ActorID) {
		return nil, forbidden("only the adopter or the owner can schedule a handover")
	}
	if req.Status != domain.RequestStatusApproved {
		return nil, invalidState("request is %s", req.Status)
	}
	handover, err := domain.NewHandover(s.newID(), req, input.ProposedDate, input.Location, input.Notes)
	if err != nil {
		return nil, mapError(err)
	}

	var saved *types.HandoverProjection
	err = s.cascade(ctx, req.ID, func(ctx context.Context) error {
		// Rewriting the request orders this insert against a concurrent cancellation.
		if _, _, err := compareAndSet(ctx, s.requests, req.ID, touch(func(r *domain.Request) error {
			if r.Status != domain.RequestStatusApproved {
				return invalidState("request is %s", r.Status)
			}
			return nil
		})); err != nil {
			return err
		}
		open, err := s.handovers.Query(ctx, ports.HandoverQuery{
			RequestID: req.ID,
			Statuses:  domain.OpenHandoverStatuses(),
			Limit:     1,
		})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return conflict("request already has an open handover")
		}
		saved, err = s.handovers.Create(ctx, handover)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}

	batch := &effects{}
	batch.notify(counterpartOf(handover, input.ActorID),
		fmt.Sprintf("Handover of %s proposed for %s", req.PetName, handover.ProposedDate.Format("2006-01-02")), ports.NotificationInfo)
	batch.publish(s.handoverChanged(handover, input.ActorID))
	s.effects.dispatch(ctx, batch)
	return saved, nil
}

// ConfirmHandover records the agreed date and place; only the owner confirms.
func (s *Service) ConfirmHandover(ctx context.Context, input types.ConfirmHandoverInput) (*types.HandoverProjection, error) {
	current, err := s.handovers.Get(ctx, input.HandoverID)
	if err != nil {
		return nil, mapError(err)
	}
	if current.Entity.OwnerID != input.ActorID {
		return nil, forbidden("only the owner can confirm a handover")
	}
	saved, _, err := compareAndSet(ctx, s.handovers, input.HandoverID, func(h *domain.Handover) (bool, error) {
		return applied(h.Confirm(input.ConfirmedDate, input.Location))
	})
	if err != nil {
		return nil, mapError(err)
	}
	h := saved.Entity
	batch := &effects{}
	message := fmt.Sprintf("Handover confirmed for %s", h.ConfirmedDate.Format("2006-01-02"))
	if h.Location != "" {
		message += " at " + h.Location
	}
	batch.notify(h.AdopterID, message, ports.NotificationSuccess)
	batch.publish(s.handoverChanged(h, input.ActorID))
	s.effects.dispatch(ctx, batch)
	return saved, nil
}

// completionOutcome records which steps of the completion cascade this call applied.
type completionOutcome struct {
	handover        *types.HandoverProjection
	request         *domain.Request
	pet             *domain.Pet
	handoverChanged bool
	requestChanged  bool
	petChanged      bool
}

// CompleteHandover finalizes the transfer and cascades the request to completed and the pet
// to adopted. Calling it again on a completed handover finishes any step a previous call left
// behind and otherwise changes nothing.
func (s *Service) CompleteHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error) {
	current, err := s.handovers.Get(ctx, input.HandoverID)
	if err != nil {
		return nil, mapError(err)
	}
	if !current.Entity.IsParty(input.ActorID) {
		return nil, forbidden("only the adopter or the owner can complete a handover")
	}

	outcome := &completionOutcome{}
	err = s.cascade(ctx, current.Entity.RequestID, func(ctx context.Context) error {
		outcome = &completionOutcome{}
		return s.applyCompletion(ctx, input.HandoverID, outcome)
	})
	if err != nil {
		if s.tx == nil {
			s.effects.dispatch(ctx, s.completionEffects(outcome, input.ActorID))
		}
		return nil, mapError(err)
	}
	s.effects.dispatch(ctx, s.completionEffects(outcome, input.ActorID))
	return outcome.handover, nil
}

// applyCompletion writes the request first. Request cancellation starts from the request too,
// so whichever lands there first decides, and a completed handover always has a completed request.
func (s *Service) applyCompletion(ctx context.Context, handoverID string, out *completionOutcome) error {
	current, err := s.handovers.Get(ctx, handoverID)
	if err != nil {
		return err
	}
	// Dry run on a copy: only a handover able to complete may complete its request.
	if _, err := current.Entity.Clone().Complete(s.strictCompletion, s.now()); err != nil {
		return err
	}
	h := current.Entity
	if err := s.completeRequest(ctx, h, out); err != nil {
		return err
	}

	saved, changed, err := compareAndSet(ctx, s.handovers, handoverID, func(h *domain.Handover) (bool, error) {
		return h.Complete(s.strictCompletion, s.now())
	})
	if err != nil {
		return err
	}
	out.handover, out.handoverChanged = saved, changed
	return s.adoptPet(ctx, h, out)
}

// finishCompletion applies the request and pet steps owed by an already completed handover.
func (s *Service) finishCompletion(ctx context.Context, done *types.HandoverProjection, out *completionOutcome) error {
	out.handover = done
	if err := s.completeRequest(ctx, done.Entity, out); err != nil {
		return err
	}
	return s.adoptPet(ctx, done.Entity, out)
}

func (s *Service) completeRequest(ctx context.Context, h *domain.Handover, out *completionOutcome) error {
	req, changed, err := compareAndSet(ctx, s.requests, h.RequestID, func(r *domain.Request) (bool, error) {
		return r.Complete(s.now())
	})
	if err != nil {
		return err
	}
	out.request, out.requestChanged = req.Entity, changed
	return nil
}

func (s *Service) adoptPet(ctx context.Context, h *domain.Handover, out *completionOutcome) error {
	pet, changed, err := compareAndSet(ctx, s.pets, h.PetID, func(p *domain.Pet) (bool, error) {
		// A pet freed by an interrupted cancellation goes back to the completed request.
		if p.IsAvailable() {
			if _, err := p.Claim(h.RequestID); err != nil {
				return false, err
			}
		}
		return p.MarkAdopted(h.RequestID)
	})
	if err != nil {
		return err
	}
	out.pet, out.petChanged = pet.Entity, changed
	return nil
}

// completedHandover returns the completed handover of requestID, or nil when there is none.
func (s *Service) completedHandover(ctx context.Context, requestID string) (*types.HandoverProjection, error) {
	done, err := s.handovers.Query(ctx, ports.HandoverQuery{
		RequestID: requestID,
		Statuses:  []domain.HandoverStatus{domain.HandoverStatusCompleted},
		Limit:     1,
	})
	if err != nil || len(done) == 0 {
		return nil, err
	}
	return done[0], nil
}

func (s *Service) completionEffects(out *completionOutcome, actorID string) *effects {
	batch := &effects{}
	if out.requestChanged {
		batch.publish(s.requestChanged(out.request, domain.RequestStatusApproved, actorID))
	}
	if out.handover == nil {
		return batch
	}
	h := out.handover.Entity
	if out.handoverChanged {
		batch.publish(s.handoverChanged(h, actorID))
	}
	if out.petChanged {
		batch.notify(h.AdopterID, fmt.Sprintf("Congratulations, %s is now yours", out.pet.Name), ports.NotificationSuccess)
		batch.notify(h.OwnerID, fmt.Sprintf("%s has been adopted", out.pet.Name), ports.NotificationSuccess)
		batch.mail(h.OwnerID, "Adoption completed",
			fmt.Sprintf("The handover of %s is complete and the listing is now marked as adopted.", out.pet.Name))
		batch.publish(s.petAdopted(out.pet, out.request))
	}
	return batch
}

// CancelHandover terminates an open handover. Under the release policy the request is
// cancelled as well and the pet returns to available. A handover whose request already
// completed cannot be cancelled.
func (s *Service) CancelHandover(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error) {
	current, err := s.handovers.Get(ctx, input.HandoverID)
	if err != nil {
		return nil, mapError(err)
	}
	if !current.Entity.IsParty(input.ActorID) {
		return nil, forbidden("only the adopter or the owner can cancel a handover")
	}
	if current.Entity.Status.IsTerminal() {
		return nil, invalidState("handover is %s", current.Entity.Status)
	}

	var (
		saved     *types.HandoverProjection
		cancelled *types.RequestProjection
		released  bool
	)
	requestID := current.Entity.RequestID
	err = s.cascade(ctx, requestID, func(ctx context.Context) error {
		// Request first, in the same order as completion, so the two cannot cross.
		req, changed, err := compareAndSet(ctx, s.requests, requestID, func(r *domain.Request) (bool, error) {
			switch {
			case r.Status == domain.RequestStatusCompleted:
				return false, invalidState("request %s is already completed", r.ID)
			case r.Status != domain.RequestStatusApproved:
				return false, nil
			case s.cancelPolicy == CancelPolicyRelease:
				return applied(r.Cancel(input.ActorID, s.now()))
			}
			return true, nil
		})
		if err != nil {
			return err
		}
		if changed && s.cancelPolicy == CancelPolicyRelease {
			cancelled = req
		}

		saved, _, err = compareAndSet(ctx, s.handovers, input.HandoverID, func(h *domain.Handover) (bool, error) {
			return applied(h.Cancel(input.ActorID))
		})
		if err != nil || cancelled == nil {
			return err
		}
		_, released, err = s.releasePet(ctx, saved.Entity.PetID, requestID)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}

	h := saved.Entity
	batch := &effects{}
	batch.notify(counterpartOf(h, input.ActorID), "A scheduled handover was cancelled", ports.NotificationWarning)
	batch.publish(s.handoverChanged(h, input.ActorID))
	if cancelled != nil {
		batch.publish(s.requestChanged(cancelled.Entity, domain.RequestStatusApproved, input.ActorID))
	}
	if released {
		batch.notify(h.OwnerID, "The listing is available again", ports.NotificationInfo)
	}
	s.effects.dispatch(ctx, batch)
	return saved, nil
}

func (s *Service) handoverChanged(h *domain.Handover, actorID string) domain.HandoverStatusChanged {
	return domain.HandoverStatusChanged{
		BaseEvent:  domain.BaseEvent{Timestamp: s.now()},
		HandoverID: h.ID,
		RequestID:  h.RequestID,
		PetID:      h.PetID,
		ActorID:    actorID,
		To:         h.Status,
	}
}

func (s *Service) petAdopted(pet *domain.Pet, req *domain.Request) domain.PetAdopted {
	evt := domain.PetAdopted{
		BaseEvent: domain.BaseEvent{Timestamp: s.now()},
		PetID:     pet.ID,
		RequestID: pet.ActiveRequestID,
		OwnerID:   pet.CreatorID,
	}
	if req != nil {
		evt.AdopterID = req.ApplicantID
	}
	return evt
}

func counterpartOf(h *domain.Handover, actorID string) string {
	if actorID == h.OwnerID {
		return h.AdopterID
	}
	return h.OwnerID
}
