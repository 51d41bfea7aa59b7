// Package apierrors contains the error types returned to API callers, carrying
// enough detail to tell the user why the operation was refused.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an expected, recoverable API error.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidSlot       Kind = "invalid_slot"
	KindSlotConflict      Kind = "slot_conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindValidation        Kind = "validation"
)

// APIError represents an expected error outcome of an API operation.
type APIError struct {
	Kind   Kind   `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
	status int
}

// Option determines the Functional Options used to create a new APIError.
type Option func(apiError *APIError)

// NewAPIError creates a new APIError using the given options.
func NewAPIError(opts ...Option) *APIError {
	apiError := &APIError{}
	for _, opt := range opts {
		opt(apiError)
	}
	return apiError
}

// WithKind determines the error kind.
func WithKind(kind Kind) Option {
	return func(apiError *APIError) {
		apiError.Kind = kind
	}
}

// WithDetail determines the error detail shown to the caller.
func WithDetail(detail string) Option {
	return func(apiError *APIError) {
		apiError.Detail = detail
	}
}

// WithHTTPStatusCode determines the HTTP status associated to the error.
func WithHTTPStatusCode(status int) Option {
	return func(apiError *APIError) {
		apiError.status = status
	}
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return e.Detail
}

// HTTPStatusCode gets the HTTP status associated to the error.
func (e *APIError) HTTPStatusCode() int {
	if e.status == 0 {
		return http.StatusInternalServerError
	}
	return e.status
}

// IsKind checks if the given error is an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.Kind == kind
}

// ValidationError represents a malformed field in the caller's input.
type ValidationError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field string, description string) *ValidationError {
	return &ValidationError{Field: field, Description: description}
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Description)
}
