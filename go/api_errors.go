package adoptionserver

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application"
	apierrors "github.com/Apurer/go-gin-adoption-server/internal/shared/errors"
)

var serviceResponder = apierrors.NewResponder(mapServiceError)

// mapServiceError translates the coordinator taxonomy into problem details.
func mapServiceError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, application.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidState):
		return apierrors.ErrInvalidState.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrForbidden):
		return apierrors.ErrForbidden.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrValidation):
		return apierrors.ErrUnprocessable.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

// respondError answers with a problem of the given status for transport-level failures.
func respondError(c *gin.Context, status int, err error) {
	if err == nil {
		return
	}
	apierrors.Respond(c, apierrors.ForStatus(status).WithDetail(err.Error()))
}

// respondServiceError maps errors returned by the coordinator; unknown errors become 500.
func respondServiceError(c *gin.Context, err error) {
	serviceResponder.RespondError(c, err)
}
