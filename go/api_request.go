package adoptionserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	adoptionhttpmapper "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/http/mapper"
	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
	apierrors "github.com/Apurer/go-gin-adoption-server/internal/shared/errors"
)

var (
	errOtherUser    = errors.New("listing belongs to another user")
	errNotReviewer  = errors.New("the pending queue is open to triage reviewers only")
	errNotRequestor = errors.New("request belongs to other users")
)

// RequestAPI serves adoption request endpoints. Decisions run through the workflow orchestrator when one is set.
type RequestAPI struct {
	service   ports.Service
	workflows ports.WorkflowOrchestrator
	reviewers map[string]struct{}
}

// RequestAPIOption configures a RequestAPI.
type RequestAPIOption func(*RequestAPI)

// WithTriageReviewers lets the listed users read the cross-listing pending queue and any request.
func WithTriageReviewers(ids ...string) RequestAPIOption {
	return func(api *RequestAPI) {
		for _, id := range ids {
			if id != "" {
				api.reviewers[id] = struct{}{}
			}
		}
	}
}

// NewRequestAPI creates a RequestAPI backed by the adoption service and workflows.
func NewRequestAPI(service ports.Service, workflows ports.WorkflowOrchestrator, opts ...RequestAPIOption) RequestAPI {
	api := RequestAPI{service: service, workflows: workflows, reviewers: make(map[string]struct{})}
	for _, opt := range opts {
		opt(&api)
	}
	return api
}

func (api *RequestAPI) isReviewer(userID string) bool {
	_, ok := api.reviewers[userID]
	return ok
}

// Post /v1/pets/:petId/requests
// Applies for a pet as the caller
func (api *RequestAPI) SubmitRequest(c *gin.Context) {
	var payload adoptionhttpmapper.NewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
	}
	input := adoptionhttpmapper.ToSubmitRequestInput(c.Param("petId"), actorID(c), payload)
	saved, err := api.service.SubmitRequest(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, adoptionhttpmapper.FromRequestProjection(saved))
}

// Get /v1/pets/:petId/requests
// Lists requests for a pet, newest first. Only the listing's creator may read them.
func (api *RequestAPI) RequestsForPet(c *gin.Context) {
	ctx := c.Request.Context()
	pet, err := api.service.GetPet(ctx, c.Param("petId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if pet.Entity.CreatorID != actorID(c) {
		apierrors.Respond(c, apierrors.ErrForbidden.WithDetail(errOtherUser.Error()))
		return
	}
	list, err := api.service.RequestsForPet(ctx, pet.Entity.ID)
	api.respondList(c, list, err)
}

// Get /v1/requests/pending
// Lists pending requests across all listings, oldest first, for triage reviewers
func (api *RequestAPI) PendingRequests(c *gin.Context) {
	if !api.isReviewer(actorID(c)) {
		apierrors.Respond(c, apierrors.ErrForbidden.WithDetail(errNotReviewer.Error()))
		return
	}
	list, err := api.service.PendingRequests(c.Request.Context())
	api.respondList(c, list, err)
}

// Get /v1/users/:userId/requests
// Lists the caller's own applications
func (api *RequestAPI) RequestsForUser(c *gin.Context) {
	userID, ok := requireSelf(c, "userId")
	if !ok {
		return
	}
	list, err := api.service.RequestsForUser(c.Request.Context(), userID)
	api.respondList(c, list, err)
}

// Get /v1/owners/:ownerId/requests
// Lists requests received by the caller's listings
func (api *RequestAPI) RequestsForOwner(c *gin.Context) {
	ownerID, ok := requireSelf(c, "ownerId")
	if !ok {
		return
	}
	list, err := api.service.RequestsForOwner(c.Request.Context(), ownerID)
	api.respondList(c, list, err)
}

// Get /v1/requests/:requestId
func (api *RequestAPI) GetRequest(c *gin.Context) {
	req, err := api.service.GetRequest(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if actor := actorID(c); !req.Entity.IsParty(actor) && !api.isReviewer(actor) {
		apierrors.Respond(c, apierrors.ErrForbidden.WithDetail(errNotRequestor.Error()))
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromRequestProjection(req))
}

// Post /v1/requests/:requestId/decision
// Approves or rejects a pending request
func (api *RequestAPI) Decide(c *gin.Context) {
	var payload adoptionhttpmapper.Decision
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input, err := adoptionhttpmapper.ToDecideInput(c.Param("requestId"), actorID(c), payload)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	decided, err := api.decide(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromRequestProjection(decided))
}

func (api *RequestAPI) decide(ctx context.Context, input types.DecideInput) (*types.RequestProjection, error) {
	if api.workflows != nil {
		return api.workflows.DecideRequest(ctx, input)
	}
	return api.service.Decide(ctx, input)
}

// Post /v1/requests/:requestId/cancel
// Withdraws a request as applicant or owner
func (api *RequestAPI) CancelRequest(c *gin.Context) {
	input := types.CancelRequestInput{RequestID: c.Param("requestId"), ActorID: actorID(c)}
	cancelled, err := api.service.CancelRequest(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromRequestProjection(cancelled))
}

// Post /v1/requests/:requestId/reconcile
// Re-applies cascade steps left behind by an interrupted transition
func (api *RequestAPI) Reconcile(c *gin.Context) {
	result, err := api.service.Reconcile(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromReconcileResult(result))
}

func (api *RequestAPI) respondList(c *gin.Context, list []*types.RequestProjection, err error) {
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromRequestProjectionList(list))
}

// requireSelf allows per-user listings only to the user they belong to.
func requireSelf(c *gin.Context, param string) (string, bool) {
	id := c.Param(param)
	if id != actorID(c) {
		apierrors.Respond(c, apierrors.ErrForbidden.WithDetail(errOtherUser.Error()))
		return "", false
	}
	return id, true
}
