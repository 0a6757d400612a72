package adoption

import (
	"errors"
	"fmt"
	"strings"

	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application"
)

// Application error types carried across the workflow boundary.
const (
	ErrorTypeNotFound     = "NotFound"
	ErrorTypeInvalidState = "InvalidState"
	ErrorTypeForbidden    = "Forbidden"
	ErrorTypeConflict     = "Conflict"
	ErrorTypeValidation   = "Validation"
)

var errorTypes = []struct {
	name     string
	sentinel error
}{
	{ErrorTypeNotFound, application.ErrNotFound},
	{ErrorTypeInvalidState, application.ErrInvalidState},
	{ErrorTypeForbidden, application.ErrForbidden},
	{ErrorTypeConflict, application.ErrConflict},
	{ErrorTypeValidation, application.ErrValidation},
}

// toActivityError marks coordinator rejections non-retryable; store and network errors stay retryable.
func toActivityError(err error) error {
	for _, t := range errorTypes {
		if errors.Is(err, t.sentinel) {
			return temporal.NewNonRetryableApplicationError(err.Error(), t.name, err)
		}
	}
	return err
}

// FromWorkflowError restores the coordinator error taxonomy from a workflow failure.
func FromWorkflowError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	for _, t := range errorTypes {
		if appErr.Type() == t.name {
			return fmt.Errorf("%w: %s", t.sentinel, trimSentinel(appErr.Message(), t.sentinel))
		}
	}
	return err
}

// trimSentinel drops the "<sentinel>: " prefix the coordinator already put on the message.
func trimSentinel(msg string, sentinel error) string {
	return strings.TrimPrefix(msg, sentinel.Error()+": ")
}
