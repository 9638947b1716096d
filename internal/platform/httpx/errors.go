// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by handlers.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrValidation    = errors.New("validation failed")
	ErrUnprocessable = errors.New("request cannot be applied")
	ErrUnavailable   = errors.New("dependency unavailable")
	ErrBodyTooLarge  = errors.New("request body too large")
)

// ErrorMapping pairs domain errors with the sentinel that decides the status.
type ErrorMapping map[error]error

// Resolve returns the sentinel registered for the first matching domain
// error, or err unchanged.
func (m ErrorMapping) Resolve(err error) error {
	for domainErr, sentinel := range m {
		if errors.Is(err, domainErr) {
			return sentinel
		}
	}
	return err
}

// RespondError maps errors to HTTP responses using RFC7807. The detail is
// the original error text except for internal errors.
func RespondError(w http.ResponseWriter, err error, mapping ErrorMapping) {
	kind := err
	if mapping != nil {
		kind = mapping.Resolve(err)
	}
	switch {
	case errors.Is(kind, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(kind, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(kind, ErrBodyTooLarge):
		Problem(w, http.StatusRequestEntityTooLarge, "Request Too Large", err.Error())
	case errors.Is(kind, ErrUnprocessable):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	case errors.Is(kind, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
