package adoptionserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	adoptionhttpmapper "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/http/mapper"
	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// HandoverAPI serves handover scheduling endpoints.
type HandoverAPI struct {
	service   ports.Service
	workflows ports.WorkflowOrchestrator
}

// NewHandoverAPI creates a HandoverAPI backed by the adoption service and workflows.
func NewHandoverAPI(service ports.Service, workflows ports.WorkflowOrchestrator) HandoverAPI {
	return HandoverAPI{service: service, workflows: workflows}
}

// Post /v1/requests/:requestId/handovers
// Proposes a handover date for an approved request
func (api *HandoverAPI) CreateHandover(c *gin.Context) {
	var payload adoptionhttpmapper.NewHandover
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input := adoptionhttpmapper.ToCreateHandoverInput(c.Param("requestId"), actorID(c), payload)
	saved, err := api.service.CreateHandover(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, adoptionhttpmapper.FromHandoverProjection(saved))
}

// Get /v1/requests/:requestId/handovers
func (api *HandoverAPI) HandoversForRequest(c *gin.Context) {
	list, err := api.service.HandoversForRequest(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromHandoverProjectionList(list))
}

// Get /v1/handovers/:handoverId
func (api *HandoverAPI) GetHandover(c *gin.Context) {
	h, err := api.service.GetHandover(c.Request.Context(), c.Param("handoverId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromHandoverProjection(h))
}

// Post /v1/handovers/:handoverId/confirm
// Owner agrees on date and place
func (api *HandoverAPI) ConfirmHandover(c *gin.Context) {
	var payload adoptionhttpmapper.HandoverConfirmation
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input := adoptionhttpmapper.ToConfirmHandoverInput(c.Param("handoverId"), actorID(c), payload)
	confirmed, err := api.service.ConfirmHandover(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromHandoverProjection(confirmed))
}

// Post /v1/handovers/:handoverId/complete
// Records the transfer; the request completes and the pet is adopted
func (api *HandoverAPI) CompleteHandover(c *gin.Context) {
	input := types.HandoverActionInput{HandoverID: c.Param("handoverId"), ActorID: actorID(c)}
	completed, err := api.complete(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromHandoverProjection(completed))
}

func (api *HandoverAPI) complete(ctx context.Context, input types.HandoverActionInput) (*types.HandoverProjection, error) {
	if api.workflows != nil {
		return api.workflows.CompleteHandover(ctx, input)
	}
	return api.service.CompleteHandover(ctx, input)
}

// Post /v1/handovers/:handoverId/cancel
func (api *HandoverAPI) CancelHandover(c *gin.Context) {
	input := types.HandoverActionInput{HandoverID: c.Param("handoverId"), ActorID: actorID(c)}
	cancelled, err := api.service.CancelHandover(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromHandoverProjection(cancelled))
}
