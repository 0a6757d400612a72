package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPetMissing = errors.New("pet missing")

func respondWith(t *testing.T, r *Responder, err error) (*httptest.ResponseRecorder, ProblemDetail) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/pets/p-1", nil)

	r.RespondError(c, err)

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.True(t, c.IsAborted())
	return rec, problem
}

func TestResponder_UsesFirstClaimingMapper(t *testing.T) {
	r := NewResponder(
		func(err error) (ProblemDetail, bool) {
			if errors.Is(err, errPetMissing) {
				return ErrNotFound.WithDetail(err.Error()), true
			}
			return ProblemDetail{}, false
		},
		func(error) (ProblemDetail, bool) { return ErrConflict, true },
	)

	rec, problem := respondWith(t, r, fmt.Errorf("load: %w", errPetMissing))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, TypeNotFound, problem.Type)
	assert.Equal(t, "load: pet missing", problem.Detail)
	assert.Equal(t, "/v1/pets/p-1", problem.Instance)
}

func TestResponder_UnclaimedErrorsHideInternals(t *testing.T) {
	rec, problem := respondWith(t, NewResponder(), errors.New("dial tcp 10.0.0.3:5432: refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, TypeInternal, problem.Type)
	assert.NotContains(t, problem.Detail, "10.0.0.3")
}

func TestResponder_PassesThroughProblems(t *testing.T) {
	_, problem := respondWith(t, NewResponder(), fmt.Errorf("wrapped: %w", ErrInvalidState.WithDetail("pet adopted")))

	assert.Equal(t, TypeInvalidState, problem.Type)
	assert.Equal(t, http.StatusConflict, problem.Status)
	assert.Equal(t, "pet adopted", problem.Detail)
}

func TestForStatus(t *testing.T) {
	assert.Equal(t, TypeBadRequest, ForStatus(http.StatusBadRequest).Type)
	assert.Equal(t, TypeUnauthorized, ForStatus(http.StatusUnauthorized).Type)
	assert.Equal(t, TypeConflict, ForStatus(http.StatusConflict).Type)
	assert.Equal(t, TypeInternal, ForStatus(http.StatusTeapot).Type)
}

func TestWithExtension_LeavesTemplateUntouched(t *testing.T) {
	first := ErrConflict.WithExtension("version", 3)
	second := first.WithExtension("petId", "p-1")

	assert.Nil(t, ErrConflict.Extensions)
	assert.Len(t, first.Extensions, 1)
	assert.Len(t, second.Extensions, 2)
	assert.Equal(t, "Conflict", ErrConflict.Error())
	assert.Equal(t, "Conflict: stale", ErrConflict.WithDetail("stale").Error())
}
