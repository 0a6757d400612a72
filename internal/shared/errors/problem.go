// Package errors renders adoption API failures as RFC 7807 problem documents.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail is the application/problem+json body returned for every failed call.
type ProblemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail == "" {
		return p.Title
	}
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WithDetail copies p and sets the occurrence-specific explanation.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension copies p and adds one extension member without touching the template map.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	extensions := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		extensions[k] = v
	}
	extensions[key] = value
	p.Extensions = extensions
	return p
}

// Problem type references clients can branch on.
const (
	TypeBadRequest    = "/problems/bad-request"
	TypeUnauthorized  = "/problems/unauthorized"
	TypeForbidden     = "/problems/forbidden"
	TypeNotFound      = "/problems/not-found"
	TypeConflict      = "/problems/conflict"
	TypeInvalidState  = "/problems/invalid-state"
	TypeUnprocessable = "/problems/unprocessable-entity"
	TypeInternal      = "/problems/internal-error"
)

var (
	ErrBadRequest   = newTemplate(TypeBadRequest, "Bad Request", http.StatusBadRequest)
	ErrUnauthorized = newTemplate(TypeUnauthorized, "Unauthorized", http.StatusUnauthorized)
	ErrForbidden    = newTemplate(TypeForbidden, "Forbidden", http.StatusForbidden)
	ErrNotFound     = newTemplate(TypeNotFound, "Resource Not Found", http.StatusNotFound)
	// ErrConflict covers concurrent writes and duplicate pending requests.
	ErrConflict = newTemplate(TypeConflict, "Conflict", http.StatusConflict)
	// ErrInvalidState covers lifecycle transitions the current status does not allow.
	ErrInvalidState  = newTemplate(TypeInvalidState, "Invalid State", http.StatusConflict)
	ErrUnprocessable = newTemplate(TypeUnprocessable, "Unprocessable Entity", http.StatusUnprocessableEntity)
	ErrInternal      = newTemplate(TypeInternal, "Internal Server Error", http.StatusInternalServerError)
)

func newTemplate(problemType, title string, status int) ProblemDetail {
	return ProblemDetail{Type: problemType, Title: title, Status: status}
}

// ForStatus returns the template registered for status, or ErrInternal.
// 409 resolves to ErrConflict; invalid-state problems come from error mapping only.
func ForStatus(status int) ProblemDetail {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrUnprocessable
	}
	return ErrInternal
}
