// Package http serves the budget JSON API.
//
// This file implements a small builder for JSON responses and the mapping
// from service errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budget/internal/core"
	"budget/internal/exchange"
	"budget/internal/services"
	"budget/internal/store"
)

// ErrorBody is the payload of every non-2xx response. Retry is set when the
// same request may succeed later.
type ErrorBody struct {
	Error string `json:"error"`
	Retry bool   `json:"retry,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// StoreUnavailableError creates the 503 returned when a snapshot read
// failed. Clients may retry.
func StoreUnavailableError() *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusServiceUnavailable).
		Header("Retry-After", "1").
		Body(ErrorBody{Error: "data temporarily unavailable", Retry: true})
}

var validationErrors = []error{
	core.ErrZeroDate,
	core.ErrInvalidAmount,
	core.ErrZeroAmount,
	core.ErrEmptyName,
	core.ErrInvalidCategoryType,
	core.ErrInvalidLimit,
	core.ErrInvalidReference,
	core.ErrSignMismatch,
	core.ErrDescriptionTooLong,
	core.ErrSameAccount,
	exchange.ErrUnsupportedVersion,
	exchange.ErrMissingTable,
	exchange.ErrBrokenTransfer,
}

var conflictErrors = []error{
	store.ErrDuplicateName,
	store.ErrAccountInUse,
	store.ErrCategoryInUse,
	store.ErrSystemCategory,
	services.ErrTransferLeg,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorResponse maps a service error to its response. Internal failures
// are not described to the client.
func errorResponse(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, errBadRequest):
		return BadRequestError(err.Error())
	case errors.Is(err, services.ErrStoreRead):
		return StoreUnavailableError()
	case errors.Is(err, store.ErrNotFound), errors.Is(err, core.ErrTransferNotFound):
		return NotFoundError(err.Error())
	case isAny(err, conflictErrors):
		return ErrorResponse(http.StatusConflict, err.Error())
	case isAny(err, validationErrors):
		return UnprocessableEntityError(err.Error())
	default:
		return ErrorResponse(http.StatusInternalServerError, "internal error")
	}
}
