// Package apierror provides standardized error response structures for the API
// and the error taxonomy shared by services and handlers.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// Taxonomy. Services wrap these with a descriptive message:
//
//	fmt.Errorf("no hay caja abierta para %s: %w", fecha, apierror.ErrInvalidState)
var (
	ErrNotFound          = errors.New("no encontrado")
	ErrInvalidState      = errors.New("estado inválido")
	ErrInvalidInput      = errors.New("dato inválido")
	ErrRemoteUnavailable = errors.New("servicio remoto no disponible")
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// Status maps a service error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// From builds the envelope for err. Errors outside the taxonomy get a generic
// message so driver or network details never reach the client.
func From(err error) *APIError {
	if Status(err) == http.StatusInternalServerError {
		return New("Error interno del servidor")
	}
	return New(err.Error())
}
