package errors

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the media type of every problem response.
const ContentTypeProblemJSON = "application/problem+json"

// Mapper claims an error and describes it as a problem.
type Mapper func(err error) (ProblemDetail, bool)

// Responder writes problems for errors, consulting its mappers in order.
type Responder struct {
	mappers []Mapper
}

// NewResponder builds a responder; errors no mapper claims become 500s.
func NewResponder(mappers ...Mapper) *Responder {
	return &Responder{mappers: mappers}
}

// Problem resolves err to the problem it would be answered with.
func (r *Responder) Problem(err error) ProblemDetail {
	var problem ProblemDetail
	if errors.As(err, &problem) {
		return problem
	}
	for _, mapper := range r.mappers {
		if mapped, ok := mapper(err); ok {
			return mapped
		}
	}
	return ErrInternal.WithDetail("unexpected error")
}

// RespondError answers with the problem for err and records err on the gin context.
func (r *Responder) RespondError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	Respond(c, r.Problem(err))
}

// Respond aborts the request with problem, defaulting instance to the request path.
func Respond(c *gin.Context, problem ProblemDetail) {
	if problem.Instance == "" && c.Request != nil {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(problem.Status, problem)
}
