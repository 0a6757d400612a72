package adoptionserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adoptionhttpmapper "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/http/mapper"
	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// PetAPI serves listing endpoints.
type PetAPI struct {
	service ports.Service
}

// NewPetAPI creates a PetAPI backed by the adoption service.
func NewPetAPI(service ports.Service) PetAPI {
	return PetAPI{service: service}
}

// Post /v1/pets
// Publishes a listing owned by the caller
func (api *PetAPI) RegisterPet(c *gin.Context) {
	var payload adoptionhttpmapper.NewPet
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	saved, err := api.service.RegisterPet(c.Request.Context(), adoptionhttpmapper.ToRegisterPetInput(actorID(c), payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, adoptionhttpmapper.FromPetProjection(saved))
}

// Get /v1/pets
// Lists visible, available pets
func (api *PetAPI) AvailablePets(c *gin.Context) {
	pets, err := api.service.AvailablePets(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromPetProjectionList(pets))
}

// Get /v1/pets/:petId
func (api *PetAPI) GetPet(c *gin.Context) {
	pet, err := api.service.GetPet(c.Request.Context(), c.Param("petId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromPetProjection(pet))
}

// Patch /v1/pets/:petId/visibility
// Hides or shows a listing
func (api *PetAPI) SetVisibility(c *gin.Context) {
	var payload adoptionhttpmapper.VisibilityChange
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	input := adoptionhttpmapper.ToSetVisibilityInput(c.Param("petId"), actorID(c), payload)
	updated, err := api.service.SetVisibility(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromPetProjection(updated))
}

// Delete /v1/pets/:petId
func (api *PetAPI) DeletePet(c *gin.Context) {
	input := types.DeletePetInput{PetID: c.Param("petId"), ActorID: actorID(c)}
	if err := api.service.DeletePet(c.Request.Context(), input); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get /v1/owners/:ownerId/adopted-pets
// Lists the owner's pets that found a home
func (api *PetAPI) AdoptedPets(c *gin.Context) {
	pets, err := api.service.AdoptedPets(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, adoptionhttpmapper.FromPetProjectionList(pets))
}
