// Package http serves the ledger as a JSON API.
//
// This file implements the Builder Pattern for JSON responses so every
// handler writes status, headers and body the same way.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cricketpay/internal/core"
	"cricketpay/internal/log"
	"cricketpay/internal/middleware/trace"
	"cricketpay/internal/services"
	"cricketpay/internal/store"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
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
	b.body = v
	return b
}

// Write sends the built response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", log.FieldError, err)
	}
}

// apiError is the body of every failed request.
type apiError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId,omitempty"`
	} `json:"error"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(r *http.Request, statusCode int, code, message string) *JSONResponseBuilder {
	var body apiError
	body.Error.Code = code
	body.Error.Message = message
	if r != nil {
		body.Error.RequestID = trace.RequestID(r.Context())
	}
	return NewJSONResponse().Status(statusCode).Body(body)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(r *http.Request, message string) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusBadRequest, "bad_request", message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(r *http.Request, message string) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusNotFound, "not_found", message)
}

// InternalServerError creates a 500 response that leaks no details.
func InternalServerError(r *http.Request) *JSONResponseBuilder {
	return ErrorResponse(r, http.StatusInternalServerError, "internal", "internal server error")
}

var (
	notFoundErrors = []error{
		store.ErrNotFound, core.ErrPlayerNotFound, core.ErrMatchNotFound,
		core.ErrWeekendNotFound, core.ErrPaymentNotFound,
	}
	conflictErrors = []error{
		services.ErrLedgerExists, store.ErrConflict, core.ErrSlotTaken,
		core.ErrDuplicatePlayer, core.ErrPlayerInUse, core.ErrWeekendFolded,
	}
	invalidErrors = []error{
		core.ErrInvalidAmount, core.ErrNoParticipants, core.ErrUnknownParticipant,
		core.ErrDuplicateParticipant, core.ErrInvalidKind, core.ErrEmptyName,
		core.ErrInvalidDate, core.ErrNoCurrentWeekend,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// DomainError maps a ledger error to its HTTP response. Unknown errors are
// logged and reported as 500.
func DomainError(r *http.Request, err error, operation string) *JSONResponseBuilder {
	switch {
	case isAny(err, notFoundErrors):
		return NotFoundError(r, err.Error())
	case isAny(err, conflictErrors):
		return ErrorResponse(r, http.StatusConflict, "conflict", err.Error())
	case isAny(err, invalidErrors):
		return ErrorResponse(r, http.StatusUnprocessableEntity, "invalid", err.Error())
	}

	log.LogError(r.Context(), log.FromContext(r.Context()), "Ledger operation failed", err, operation, nil)
	return InternalServerError(r)
}
