// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "github.com/shopspring/decimal"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode builds an envelope carrying a machine-readable error code
// (conflict, invalid_state, validation, integrity_mismatch, forbidden).
func WithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// MismatchError is returned when the counted cash declared by the client does
// not match the denomination ledger of the session.
type MismatchError struct {
	Detail   string          `json:"detail"`
	Code     string          `json:"code"`
	Declared decimal.Decimal `json:"declarado"`
	Ledger   decimal.Decimal `json:"subtotal_denominaciones"`
}

func NewMismatch(msg string, declared, ledger decimal.Decimal) *MismatchError {
	return &MismatchError{Detail: msg, Code: "integrity_mismatch", Declared: declared, Ledger: ledger}
}
