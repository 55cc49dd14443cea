package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies the user-facing failures of the caja services.
type ErrorKind string

const (
	KindConflict          ErrorKind = "conflict"
	KindInvalidState      ErrorKind = "invalid_state"
	KindValidation        ErrorKind = "validation"
	KindIntegrityMismatch ErrorKind = "integrity_mismatch"
	KindForbidden         ErrorKind = "forbidden"
	KindNotFound          ErrorKind = "not_found"
)

// CajaError is a recoverable, typed failure. Callers match it with errors.Is
// against the sentinels below; the message is safe to show to end users.
type CajaError struct {
	Kind ErrorKind
	Msg  string

	// Set only for KindIntegrityMismatch.
	Declared decimal.Decimal
	Ledger   decimal.Decimal
}

func (e *CajaError) Error() string { return e.Msg }

// Is matches any CajaError of the same kind.
func (e *CajaError) Is(target error) bool {
	t, ok := target.(*CajaError)
	return ok && t.Kind == e.Kind
}

var (
	ErrConflict          = &CajaError{Kind: KindConflict, Msg: "conflicto"}
	ErrInvalidState      = &CajaError{Kind: KindInvalidState, Msg: "estado inválido"}
	ErrValidation        = &CajaError{Kind: KindValidation, Msg: "datos inválidos"}
	ErrIntegrityMismatch = &CajaError{Kind: KindIntegrityMismatch, Msg: "inconsistencia de arqueo"}
	ErrForbidden         = &CajaError{Kind: KindForbidden, Msg: "permisos insuficientes"}
	ErrNotFound          = &CajaError{Kind: KindNotFound, Msg: "no encontrado"}
)

func newErr(kind ErrorKind, format string, args ...interface{}) *CajaError {
	return &CajaError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...interface{}) error {
	return newErr(KindConflict, format, args...)
}

func invalidStatef(format string, args ...interface{}) error {
	return newErr(KindInvalidState, format, args...)
}

func validationf(format string, args ...interface{}) error {
	return newErr(KindValidation, format, args...)
}

func forbiddenf(format string, args ...interface{}) error {
	return newErr(KindForbidden, format, args...)
}

func notFoundf(format string, args ...interface{}) error {
	return newErr(KindNotFound, format, args...)
}

func integrityMismatch(declared, ledger decimal.Decimal) error {
	return &CajaError{
		Kind: KindIntegrityMismatch,
		Msg: fmt.Sprintf("el efectivo declarado (%s) no coincide con el conteo por denominaciones (%s)",
			declared.StringFixed(2), ledger.StringFixed(2)),
		Declared: declared,
		Ledger:   ledger,
	}
}
