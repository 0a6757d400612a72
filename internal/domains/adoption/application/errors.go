package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

var (
	// ErrNotFound signals a referenced pet, request or handover does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState signals the current status does not permit the transition.
	ErrInvalidState = errors.New("invalid state")
	// ErrForbidden signals the actor lacks authority for the transition.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict signals a concurrent transition raced ahead.
	ErrConflict = errors.New("conflict")
	// ErrValidation signals required input or references are missing.
	ErrValidation = errors.New("validation failed")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation):
		return err
	case errors.Is(err, ports.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, ports.ErrVersionConflict),
		errors.Is(err, ports.ErrDuplicate),
		errors.Is(err, domain.ErrPetClaimed):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, domain.ErrTerminalStatus),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPetNotAvailable),
		errors.Is(err, domain.ErrPetNotInProcess),
		errors.Is(err, domain.ErrRequestNotApproved),
		errors.Is(err, domain.ErrHandoverNotConfirmed),
		errors.Is(err, domain.ErrSelfApplication):
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	case errors.Is(err, domain.ErrEmptyPetName),
		errors.Is(err, domain.ErrEmptySpecies),
		errors.Is(err, domain.ErrEmptyCreator),
		errors.Is(err, domain.ErrInvalidVisibility),
		errors.Is(err, domain.ErrMissingPetID),
		errors.Is(err, domain.ErrMissingApplicantID),
		errors.Is(err, domain.ErrMissingCreatorID),
		errors.Is(err, domain.ErrMissingProposedDate),
		errors.Is(err, domain.ErrMissingConfirmedDate),
		errors.Is(err, domain.ErrUnknownDecision),
		errors.Is(err, domain.ErrUnknownStatus):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
