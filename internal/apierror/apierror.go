// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, store errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation failed", Fields: fields}
}

// ConflictError reports an identity already taken by another record.
// Existing names the record that holds it (e.g. the enrolled shop).
type ConflictError struct {
	Detail   string `json:"detail"`
	Existing string `json:"existing,omitempty"`
}

func NewConflict(msg, existing string) *ConflictError {
	return &ConflictError{Detail: msg, Existing: existing}
}
