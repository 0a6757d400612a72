package domain

import (
	"errors"
	"fmt"
	"strings"
)

// PetStatus represents where a listing is in the adoption lifecycle.
type PetStatus string

const (
	PetStatusAvailable PetStatus = "available"
	PetStatusInProcess PetStatus = "in_process"
	PetStatusAdopted   PetStatus = "adopted"
)

// Visibility controls whether a listing shows up for applicants.
type Visibility string

const (
	VisibilityVisible Visibility = "visible"
	VisibilityHidden  Visibility = "hidden"
)

// Pet is a published, adoptable animal owned by its creator.
type Pet struct {
	ID          string
	Name        string
	Species     string
	Breed       string
	Description string
	PhotoURLs   []string
	CreatorID   string
	Visibility  Visibility
	Status      PetStatus
	// ActiveRequestID references the approved request holding the pet while in_process or adopted.
	ActiveRequestID string
}

var (
	ErrEmptyPetName      = errors.New("pet name is required")
	ErrEmptySpecies      = errors.New("pet species is required")
	ErrEmptyCreator      = errors.New("pet creator is required")
	ErrInvalidVisibility = errors.New("visibility must be visible or hidden")
	ErrPetClaimed        = errors.New("pet is held by another adoption request")
	ErrPetNotAvailable   = errors.New("pet is not available for adoption")
	ErrPetNotInProcess   = errors.New("pet is not in process")
)

// NewPet validates the invariants and builds a visible, available listing.
func NewPet(id, name, species, creatorID string) (*Pet, error) {
	p := &Pet{ID: id, Visibility: VisibilityVisible, Status: PetStatusAvailable}
	if err := p.Rename(name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(species) == "" {
		return nil, ErrEmptySpecies
	}
	if strings.TrimSpace(creatorID) == "" {
		return nil, ErrEmptyCreator
	}
	p.Species = strings.TrimSpace(species)
	p.CreatorID = creatorID
	return p, nil
}

// Rename mutates the pet name ensuring the invariant.
func (p *Pet) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyPetName
	}
	p.Name = strings.TrimSpace(name)
	return nil
}

// ReplacePhotos swaps the photo set, dropping blank entries.
func (p *Pet) ReplacePhotos(urls []string) {
	photos := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			photos = append(photos, u)
		}
	}
	p.PhotoURLs = photos
}

// SetVisibility hides or shows the listing.
func (p *Pet) SetVisibility(v Visibility) error {
	switch v {
	case VisibilityVisible, VisibilityHidden:
		p.Visibility = v
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVisibility, v)
	}
}

// IsVisible reports whether applicants can see the listing.
func (p *Pet) IsVisible() bool {
	return p.Visibility != VisibilityHidden
}

// IsAvailable reports whether the pet can be claimed by a new request.
func (p *Pet) IsAvailable() bool {
	return p.Status == PetStatusAvailable && p.ActiveRequestID == ""
}

// AcceptApplication checks that applicantID may file a request for the pet right now.
func (p *Pet) AcceptApplication(applicantID string) error {
	if p.CreatorID == applicantID {
		return ErrSelfApplication
	}
	if !p.IsVisible() {
		return fmt.Errorf("%w: listing is hidden", ErrPetNotAvailable)
	}
	if !p.IsAvailable() {
		return fmt.Errorf("%w: status is %s", ErrPetNotAvailable, p.Status)
	}
	return nil
}

// HeldBy reports whether requestID is the request currently holding the pet.
func (p *Pet) HeldBy(requestID string) bool {
	return requestID != "" && p.ActiveRequestID == requestID
}

// Claim moves an available pet to in_process on behalf of requestID.
// It returns false when the request already holds the pet.
func (p *Pet) Claim(requestID string) (bool, error) {
	if p.HeldBy(requestID) {
		return false, nil
	}
	if p.ActiveRequestID != "" {
		return false, ErrPetClaimed
	}
	if p.Status != PetStatusAvailable {
		return false, fmt.Errorf("%w: status is %s", ErrPetNotAvailable, p.Status)
	}
	p.Status = PetStatusInProcess
	p.ActiveRequestID = requestID
	return true, nil
}

// Release returns an in_process pet held by requestID to available.
// It returns false when the pet is already free.
func (p *Pet) Release(requestID string) (bool, error) {
	if p.ActiveRequestID == "" && p.Status == PetStatusAvailable {
		return false, nil
	}
	if !p.HeldBy(requestID) {
		return false, ErrPetClaimed
	}
	if p.Status != PetStatusInProcess {
		return false, fmt.Errorf("%w: status is %s", ErrPetNotInProcess, p.Status)
	}
	p.Status = PetStatusAvailable
	p.ActiveRequestID = ""
	return true, nil
}

// MarkAdopted finalizes the adoption for the holding request.
// It returns false when the pet is already adopted through requestID.
func (p *Pet) MarkAdopted(requestID string) (bool, error) {
	if p.ActiveRequestID != "" && !p.HeldBy(requestID) {
		return false, ErrPetClaimed
	}
	switch p.Status {
	case PetStatusAdopted:
		return false, nil
	case PetStatusInProcess:
		p.Status = PetStatusAdopted
		return true, nil
	default:
		return false, fmt.Errorf("%w: status is %s", ErrPetNotInProcess, p.Status)
	}
}

// Clone returns a deep copy safe to hand across goroutines.
func (p *Pet) Clone() *Pet {
	if p == nil {
		return nil
	}
	copy := *p
	copy.PhotoURLs = append([]string(nil), p.PhotoURLs...)
	return &copy
}
