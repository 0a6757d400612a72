package mapper

import (
	"time"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
)

// NewPet captures the payload of a listing publication.
type NewPet struct {
	Name        string   `json:"name"`
	Species     string   `json:"species"`
	Breed       string   `json:"breed,omitempty"`
	Description string   `json:"description,omitempty"`
	PhotoURLs   []string `json:"photoUrls,omitempty"`
	Hidden      bool     `json:"hidden,omitempty"`
}

// VisibilityChange toggles whether a listing is shown to applicants.
type VisibilityChange struct {
	Visibility string `json:"visibility"`
}

// Pet is the HTTP representation of a listing.
type Pet struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Species         string    `json:"species"`
	Breed           string    `json:"breed,omitempty"`
	Description     string    `json:"description,omitempty"`
	PhotoURLs       []string  `json:"photoUrls"`
	CreatorID       string    `json:"creatorId"`
	Visibility      string    `json:"visibility"`
	Status          string    `json:"status"`
	ActiveRequestID string    `json:"activeRequestId,omitempty"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ToRegisterPetInput attaches the acting owner to the publication payload.
func ToRegisterPetInput(creatorID string, payload NewPet) types.RegisterPetInput {
	return types.RegisterPetInput{
		CreatorID:   creatorID,
		Name:        payload.Name,
		Species:     payload.Species,
		Breed:       payload.Breed,
		Description: payload.Description,
		PhotoURLs:   append([]string{}, payload.PhotoURLs...),
		Hidden:      payload.Hidden,
	}
}

// ToSetVisibilityInput builds the visibility command for a listing.
func ToSetVisibilityInput(petID, actorID string, payload VisibilityChange) types.SetVisibilityInput {
	return types.SetVisibilityInput{PetID: petID, ActorID: actorID, Visibility: domain.Visibility(payload.Visibility)}
}

// FromPetProjection maps a stored listing to its transport shape.
func FromPetProjection(p *types.PetProjection) Pet {
	pet := p.Entity
	return Pet{
		ID:              pet.ID,
		Name:            pet.Name,
		Species:         pet.Species,
		Breed:           pet.Breed,
		Description:     pet.Description,
		PhotoURLs:       append([]string{}, pet.PhotoURLs...),
		CreatorID:       pet.CreatorID,
		Visibility:      string(pet.Visibility),
		Status:          string(pet.Status),
		ActiveRequestID: pet.ActiveRequestID,
		Version:         p.Metadata.Version,
		CreatedAt:       p.Metadata.CreatedAt,
		UpdatedAt:       p.Metadata.UpdatedAt,
	}
}

// FromPetProjectionList maps listings preserving order.
func FromPetProjectionList(list []*types.PetProjection) []Pet {
	result := make([]Pet, 0, len(list))
	for _, p := range list {
		result = append(result, FromPetProjection(p))
	}
	return result
}
