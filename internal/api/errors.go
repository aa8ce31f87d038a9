package api

import (
	"errors"
	"net/http"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/session"
	"github.com/MJE43/fairpace/internal/store"
)

// ErrorType classifies API errors for clients.
type ErrorType string

const (
	ErrTypeValidation   ErrorType = "validation_error"
	ErrTypeSeedRequired ErrorType = "seed_required"
	ErrTypeNotFound     ErrorType = "not_found"
	ErrTypeUnauthorized ErrorType = "unauthorized"
	ErrTypeUnavailable  ErrorType = "unavailable"
	ErrTypeInternal     ErrorType = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Type          ErrorType      `json:"type"`
	Message       string         `json:"message"`
	Context       map[string]any `json:"context,omitempty"`
	RequestID     string         `json:"requestId,omitempty"`
	EngineVersion string         `json:"engineVersion"`
}

// classify maps domain errors onto an HTTP status and error type.
func classify(err error) (int, ErrorType) {
	switch {
	case errors.Is(err, session.ErrSeedRequired):
		return http.StatusBadRequest, ErrTypeSeedRequired
	case errors.Is(err, config.ErrInvalid):
		return http.StatusBadRequest, ErrTypeValidation
	case errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrTypeNotFound
	default:
		return http.StatusInternalServerError, ErrTypeInternal
	}
}
