package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

const autoRejectReason = "another request for this pet was approved"

// SubmitRequest files a pending request against an available pet.
// The pet stays available so several applicants can compete until the owner decides.
func (s *Service) SubmitRequest(ctx context.Context, input types.SubmitRequestInput) (*types.RequestProjection, error) {
	if strings.TrimSpace(input.ApplicantID) == "" {
		return nil, validation("applicant id is required")
	}

	var (
		pet   *domain.Pet
		req   *domain.Request
		saved *types.RequestProjection
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		// Writing the pet orders this submission against a concurrent claim: the claim either
		// waits for the insert and then rejects it as a sibling, or wins and fails this check.
		current, _, err := compareAndSet(ctx, s.pets, input.PetID, touch(func(p *domain.Pet) error {
			return p.AcceptApplication(input.ApplicantID)
		}))
		if err != nil {
			return err
		}
		pet = current.Entity
		existing, err := s.requests.Query(ctx, ports.RequestQuery{
			PetID:       pet.ID,
			ApplicantID: input.ApplicantID,
			Statuses:    []domain.RequestStatus{domain.RequestStatusPending},
			Limit:       1,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return conflict("a pending request for %s already exists", pet.Name)
		}
		req, err = domain.NewRequest(s.newID(), pet, input.ApplicantID, input.ApplicantName, input.Form, s.now())
		if err != nil {
			return err
		}
		saved, err = s.requests.Create(ctx, req)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}

	// Without a transaction the pet may have been claimed between the check and the insert.
	if latest, err := s.pets.Get(ctx, pet.ID); err == nil && !latest.Entity.IsAvailable() && !latest.Entity.HeldBy(req.ID) {
		if _, _, err := compareAndSet(ctx, s.requests, req.ID, func(r *domain.Request) (bool, error) {
			if r.Status != domain.RequestStatusPending {
				return false, nil
			}
			return applied(r.Reject(pet.CreatorID, autoRejectReason, s.now()))
		}); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "late submission left pending",
				slog.String("request_id", req.ID), slog.String("error", err.Error()))
		}
		return nil, conflict("%s was taken while the request was being filed", pet.Name)
	}

	batch := &effects{}
	batch.notify(pet.CreatorID, fmt.Sprintf("%s wants to adopt %s", applicantLabel(req), pet.Name), ports.NotificationInfo)
	batch.publish(domain.RequestSubmitted{
		BaseEvent:   domain.BaseEvent{Timestamp: s.now()},
		RequestID:   req.ID,
		PetID:       pet.ID,
		ApplicantID: req.ApplicantID,
		CreatorID:   req.CreatorID,
	})
	s.effects.dispatch(ctx, batch)
	return saved, nil
}

// Decide approves or rejects a pending request. Only the pet's creator may decide.
func (s *Service) Decide(ctx context.Context, input types.DecideInput) (*types.RequestProjection, error) {
	decision, err := domain.ParseDecision(string(input.Decision))
	if err != nil {
		return nil, mapError(err)
	}
	req, err := s.requests.Get(ctx, input.RequestID)
	if err != nil {
		return nil, mapError(err)
	}
	pet, err := s.pets.Get(ctx, req.Entity.PetID)
	if err != nil {
		return nil, mapError(err)
	}
	if pet.Entity.CreatorID != input.DeciderID {
		return nil, forbidden("only the owner of %s can decide on its requests", pet.Entity.Name)
	}
	if decision == domain.DecisionReject {
		return s.reject(ctx, req.Entity, input)
	}
	return s.approve(ctx, req.Entity, pet.Entity, input)
}

func (s *Service) reject(ctx context.Context, req *domain.Request, input types.DecideInput) (*types.RequestProjection, error) {
	if req.Status != domain.RequestStatusPending {
		return nil, invalidState("request is %s", req.Status)
	}
	saved, _, err := compareAndSet(ctx, s.requests, req.ID, func(r *domain.Request) (bool, error) {
		return applied(r.Reject(input.DeciderID, input.Reason, s.now()))
	})
	if err != nil {
		return nil, mapError(err)
	}
	batch := &effects{}
	s.rejectionEffects(batch, saved.Entity, input.DeciderID)
	s.effects.dispatch(ctx, batch)
	return saved, nil
}

// approvalOutcome records what one run of the approval cascade changed.
type approvalOutcome struct {
	request  *types.RequestProjection
	approved bool
	rejected []*domain.Request
}

func (s *Service) approve(ctx context.Context, req *domain.Request, pet *domain.Pet, input types.DecideInput) (*types.RequestProjection, error) {
	// First approval wins: a pet held by anyone else is a conflict whatever this request's status.
	if !pet.HeldBy(req.ID) && !pet.IsAvailable() {
		return nil, conflict("%s is already %s with another request", pet.Name, pet.Status)
	}
	resuming := req.Status == domain.RequestStatusApproved && pet.HeldBy(req.ID)
	if !resuming && req.Status != domain.RequestStatusPending {
		return nil, invalidState("request is %s", req.Status)
	}

	var outcome *approvalOutcome
	err := s.cascade(ctx, req.ID, func(ctx context.Context) error {
		var err error
		outcome, err = s.applyApproval(ctx, req.ID, pet.ID, input.DeciderID)
		return err
	})
	if err != nil {
		if s.tx == nil && outcome != nil {
			s.effects.dispatch(ctx, s.approvalEffects(pet, outcome))
		}
		return nil, mapError(err)
	}
	s.effects.dispatch(ctx, s.approvalEffects(pet, outcome))
	return outcome.request, nil
}

// applyApproval claims the pet, approves the request, then rejects pending siblings.
// Each step re-checks the stored state, so re-running after a partial failure resumes it.
func (s *Service) applyApproval(ctx context.Context, requestID, petID, deciderID string) (*approvalOutcome, error) {
	// Lock the request before the pet, the order every cascade on a request follows.
	if _, _, err := compareAndSet(ctx, s.requests, requestID, touch(func(r *domain.Request) error {
		if r.Status != domain.RequestStatusPending && r.Status != domain.RequestStatusApproved {
			return conflict("request became %s while it was being approved", r.Status)
		}
		return nil
	})); err != nil {
		return nil, err
	}

	_, claimed, err := compareAndSet(ctx, s.pets, petID, func(p *domain.Pet) (bool, error) {
		return p.Claim(requestID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrPetClaimed) || errors.Is(err, domain.ErrPetNotAvailable) {
			return nil, conflict("pet was claimed by another request: %v", err)
		}
		return nil, err
	}

	saved, approved, err := compareAndSet(ctx, s.requests, requestID, func(r *domain.Request) (bool, error) {
		if r.Status == domain.RequestStatusApproved {
			return false, nil
		}
		return applied(r.Approve(deciderID, s.now()))
	})
	if err != nil {
		if claimed {
			s.releaseClaim(ctx, petID, requestID)
		}
		if errors.Is(err, domain.ErrTerminalStatus) || errors.Is(err, domain.ErrInvalidTransition) {
			return nil, conflict("request changed while it was being approved: %v", err)
		}
		return nil, err
	}

	outcome := &approvalOutcome{request: saved, approved: approved}
	outcome.rejected, err = s.rejectSiblings(ctx, petID, requestID, deciderID)
	return outcome, err
}

// releaseClaim undoes a claim whose request write failed. A failure here leaves the pet held
// by a pending request, which Reconcile repairs.
func (s *Service) releaseClaim(ctx context.Context, petID, requestID string) {
	if _, _, err := s.releasePet(ctx, petID, requestID); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "claim compensation failed",
			slog.String("pet_id", petID),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) releasePet(ctx context.Context, petID, requestID string) (*types.PetProjection, bool, error) {
	return compareAndSet(ctx, s.pets, petID, func(p *domain.Pet) (bool, error) {
		if !p.HeldBy(requestID) {
			return false, nil
		}
		return p.Release(requestID)
	})
}

func (s *Service) rejectSiblings(ctx context.Context, petID, keepID, deciderID string) ([]*domain.Request, error) {
	siblings, err := s.requests.Query(ctx, ports.RequestQuery{
		PetID:    petID,
		Statuses: []domain.RequestStatus{domain.RequestStatusPending},
		Order:    ports.SortOldestFirst,
	})
	if err != nil {
		return nil, err
	}
	var rejected []*domain.Request
	for _, sibling := range siblings {
		if sibling.Entity.ID == keepID {
			continue
		}
		saved, changed, err := compareAndSet(ctx, s.requests, sibling.Entity.ID, func(r *domain.Request) (bool, error) {
			if r.Status != domain.RequestStatusPending {
				return false, nil
			}
			return applied(r.Reject(deciderID, autoRejectReason, s.now()))
		})
		if err != nil {
			return rejected, err
		}
		if changed {
			rejected = append(rejected, saved.Entity)
		}
	}
	return rejected, nil
}

// CancelRequest withdraws a pending or approved request on behalf of either party.
// Cancelling an approved request closes its open handover and returns the pet to available.
func (s *Service) CancelRequest(ctx context.Context, input types.CancelRequestInput) (*types.RequestProjection, error) {
	current, err := s.requests.Get(ctx, input.RequestID)
	if err != nil {
		return nil, mapError(err)
	}
	req := current.Entity
	if !req.IsParty(input.ActorID) {
		return nil, forbidden("only the applicant or the owner can cancel this request")
	}
	if req.Status.IsTerminal() {
		return nil, invalidState("request is %s", req.Status)
	}

	var (
		saved     *types.RequestProjection
		from      domain.RequestStatus
		closed    []*domain.Handover
		released  bool
		finishing *completionOutcome
	)
	err = s.cascade(ctx, req.ID, func(ctx context.Context) error {
		// A completed handover means the adoption happened; finish it instead of undoing it.
		done, err := s.completedHandover(ctx, req.ID)
		if err != nil {
			return err
		}
		if done != nil {
			finishing = &completionOutcome{}
			return s.finishCompletion(ctx, done, finishing)
		}

		saved, _, err = compareAndSet(ctx, s.requests, req.ID, func(r *domain.Request) (bool, error) {
			from = r.Status
			return applied(r.Cancel(input.ActorID, s.now()))
		})
		if err != nil {
			return err
		}
		if from == domain.RequestStatusApproved {
			if closed, err = s.closeOpenHandovers(ctx, req.ID, input.ActorID); err != nil {
				return err
			}
		}
		// Request first, pet last: a crash in between leaves the pet held, never double-claimable.
		_, released, err = s.releasePet(ctx, req.PetID, req.ID)
		return err
	})
	if finishing != nil && (err == nil || s.tx == nil) {
		s.effects.dispatch(ctx, s.completionEffects(finishing, input.ActorID))
	}
	if err != nil {
		return nil, mapError(err)
	}
	if finishing != nil {
		return nil, invalidState("request %s was completed by handover %s", req.ID, finishing.handover.Entity.ID)
	}

	batch := &effects{}
	counterpart := req.CreatorID
	message := fmt.Sprintf("%s withdrew the request to adopt %s", applicantLabel(req), req.PetName)
	if input.ActorID == req.CreatorID {
		counterpart = req.ApplicantID
		message = fmt.Sprintf("Your request to adopt %s was cancelled by the owner", req.PetName)
	}
	batch.notify(counterpart, message, ports.NotificationWarning)
	batch.publish(s.requestChanged(saved.Entity, from, input.ActorID))
	for _, h := range closed {
		batch.publish(s.handoverChanged(h, input.ActorID))
	}
	if released {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "pet released after cancellation",
			slog.String("pet_id", req.PetID), slog.String("request_id", req.ID))
	}
	s.effects.dispatch(ctx, batch)
	return saved, nil
}

func (s *Service) closeOpenHandovers(ctx context.Context, requestID, actorID string) ([]*domain.Handover, error) {
	open, err := s.handovers.Query(ctx, ports.HandoverQuery{
		RequestID: requestID,
		Statuses:  domain.OpenHandoverStatuses(),
	})
	if err != nil {
		return nil, err
	}
	var closed []*domain.Handover
	for _, h := range open {
		saved, changed, err := compareAndSet(ctx, s.handovers, h.Entity.ID, func(h *domain.Handover) (bool, error) {
			if h.Status.IsTerminal() {
				return false, nil
			}
			return applied(h.Cancel(actorID))
		})
		if err != nil {
			return closed, err
		}
		if changed {
			closed = append(closed, saved.Entity)
		}
	}
	return closed, nil
}

// Reconcile re-applies every cascade step implied by the request's current status.
// It is the recovery path after a partially applied cascade and is safe to run at any time.
func (s *Service) Reconcile(ctx context.Context, requestID string) (*types.ReconcileResult, error) {
	current, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, mapError(err)
	}
	req := current.Entity
	result := &types.ReconcileResult{RequestID: req.ID, Status: req.Status}
	batch := &effects{}

	err = s.cascade(ctx, req.ID, func(ctx context.Context) error {
		switch req.Status {
		case domain.RequestStatusPending:
			return s.reconcilePending(ctx, req, result, batch)
		case domain.RequestStatusApproved:
			return s.reconcileApproved(ctx, req, result, batch)
		case domain.RequestStatusCompleted:
			return s.reconcileCompleted(ctx, req, result, batch)
		default:
			return s.reconcileClosed(ctx, req, result, batch)
		}
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(result.Applied) > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "request reconciled",
			slog.String("request_id", req.ID),
			slog.String("status", string(req.Status)),
			slog.Any("applied", result.Applied),
		)
	}
	s.effects.dispatch(ctx, batch)
	return result, nil
}

func (s *Service) reconcilePending(ctx context.Context, req *domain.Request, result *types.ReconcileResult, batch *effects) error {
	pet, err := s.pets.Get(ctx, req.PetID)
	if err != nil {
		return err
	}
	if pet.Entity.HeldBy(req.ID) {
		_, released, err := s.releasePet(ctx, req.PetID, req.ID)
		if err != nil {
			return err
		}
		if released {
			result.Applied = append(result.Applied, "pet released from unapproved request")
		}
		return nil
	}
	if pet.Entity.IsAvailable() {
		return nil
	}
	saved, changed, err := compareAndSet(ctx, s.requests, req.ID, func(r *domain.Request) (bool, error) {
		if r.Status != domain.RequestStatusPending {
			return false, nil
		}
		return applied(r.Reject(pet.Entity.CreatorID, autoRejectReason, s.now()))
	})
	if err != nil {
		return err
	}
	if changed {
		result.Status = saved.Entity.Status
		result.Applied = append(result.Applied, "request rejected, pet held elsewhere")
		s.rejectionEffects(batch, saved.Entity, pet.Entity.CreatorID)
	}
	return nil
}

func (s *Service) reconcileApproved(ctx context.Context, req *domain.Request, result *types.ReconcileResult, batch *effects) error {
	done, err := s.completedHandover(ctx, req.ID)
	if err != nil {
		return err
	}
	if done != nil {
		out := &completionOutcome{}
		err := s.finishCompletion(ctx, done, out)
		if out.requestChanged {
			result.Status = out.request.Status
			result.Applied = append(result.Applied, "request completed by handover "+done.Entity.ID)
		}
		if out.petChanged {
			result.Applied = append(result.Applied, "pet adopted")
		}
		batch.merge(s.completionEffects(out, req.CreatorID))
		return err
	}

	_, claimed, err := compareAndSet(ctx, s.pets, req.PetID, func(p *domain.Pet) (bool, error) {
		return p.Claim(req.ID)
	})
	if err != nil {
		return err
	}
	if claimed {
		result.Applied = append(result.Applied, "pet claimed")
	}
	rejected, err := s.rejectSiblings(ctx, req.PetID, req.ID, req.CreatorID)
	for _, sibling := range rejected {
		result.Applied = append(result.Applied, "sibling "+sibling.ID+" rejected")
		s.rejectionEffects(batch, sibling, req.CreatorID)
	}
	return err
}

func (s *Service) reconcileCompleted(ctx context.Context, req *domain.Request, result *types.ReconcileResult, batch *effects) error {
	open, err := s.handovers.Query(ctx, ports.HandoverQuery{
		RequestID: req.ID,
		Statuses:  domain.OpenHandoverStatuses(),
	})
	if err != nil {
		return err
	}
	for _, h := range open {
		saved, changed, err := compareAndSet(ctx, s.handovers, h.Entity.ID, func(h *domain.Handover) (bool, error) {
			return h.Complete(false, s.now())
		})
		if err != nil {
			return err
		}
		if changed {
			result.Applied = append(result.Applied, "handover "+h.Entity.ID+" completed")
			batch.publish(s.handoverChanged(saved.Entity, req.CreatorID))
		}
	}

	_, claimed, err := compareAndSet(ctx, s.pets, req.PetID, func(p *domain.Pet) (bool, error) {
		return p.Claim(req.ID)
	})
	if err != nil {
		return err
	}
	if claimed {
		result.Applied = append(result.Applied, "pet claimed")
	}
	saved, adopted, err := compareAndSet(ctx, s.pets, req.PetID, func(p *domain.Pet) (bool, error) {
		return p.MarkAdopted(req.ID)
	})
	if err != nil {
		return err
	}
	if adopted {
		result.Applied = append(result.Applied, "pet adopted")
		batch.publish(s.petAdopted(saved.Entity, req))
	}
	return nil
}

func (s *Service) reconcileClosed(ctx context.Context, req *domain.Request, result *types.ReconcileResult, batch *effects) error {
	closed, err := s.closeOpenHandovers(ctx, req.ID, req.CancelledBy)
	if err != nil {
		return err
	}
	for _, h := range closed {
		result.Applied = append(result.Applied, "handover "+h.ID+" cancelled")
		batch.publish(s.handoverChanged(h, req.CancelledBy))
	}
	_, released, err := s.releasePet(ctx, req.PetID, req.ID)
	if err != nil {
		return err
	}
	if released {
		result.Applied = append(result.Applied, "pet released")
	}
	return nil
}

func (s *Service) approvalEffects(pet *domain.Pet, outcome *approvalOutcome) *effects {
	batch := &effects{}
	if outcome.approved && outcome.request != nil {
		req := outcome.request.Entity
		batch.notify(req.ApplicantID, fmt.Sprintf("Your request to adopt %s was approved", pet.Name), ports.NotificationSuccess)
		batch.mail(pet.CreatorID, "Adoption request approved",
			fmt.Sprintf("You approved %s's request to adopt %s. Arrange the handover from the request page.", applicantLabel(req), pet.Name))
		batch.publish(s.requestChanged(req, domain.RequestStatusPending, req.ReviewedBy))
	}
	for _, sibling := range outcome.rejected {
		s.rejectionEffects(batch, sibling, sibling.ReviewedBy)
	}
	return batch
}

func (s *Service) rejectionEffects(batch *effects, req *domain.Request, actorID string) {
	message := fmt.Sprintf("Your request to adopt %s was not accepted", req.PetName)
	if req.RejectionReason != "" {
		message += ": " + req.RejectionReason
	}
	batch.notify(req.ApplicantID, message, ports.NotificationWarning)
	batch.publish(s.requestChanged(req, domain.RequestStatusPending, actorID))
}

func (s *Service) requestChanged(req *domain.Request, from domain.RequestStatus, actorID string) domain.RequestStatusChanged {
	return domain.RequestStatusChanged{
		BaseEvent:   domain.BaseEvent{Timestamp: s.now()},
		RequestID:   req.ID,
		PetID:       req.PetID,
		ApplicantID: req.ApplicantID,
		ActorID:     actorID,
		From:        from,
		To:          req.Status,
		Reason:      req.RejectionReason,
	}
}

func applicantLabel(req *domain.Request) string {
	if req.ApplicantName != "" {
		return req.ApplicantName
	}
	return "An applicant"
}
