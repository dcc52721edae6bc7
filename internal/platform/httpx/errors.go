// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Mapping binds a domain error to a problem status and title.
type Mapping struct {
	Err    error
	Status int
	Title  string
}

// RespondError maps errors to HTTP responses using RFC7807. Mappings are
// checked in order before the generic sentinels.
func RespondError(w http.ResponseWriter, err error, mappings ...Mapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			Problem(w, m.Status, m.Title, err.Error())
			return
		}
	}
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
