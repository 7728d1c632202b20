package sqlsafe

import (
	"errors"
	"fmt"
)

// Kind classifies a safe-execution failure. The set is closed: every error
// returned by this package carries exactly one of these kinds.
type Kind string

const (
	// Validation and policy failures. Deterministic: retrying with the same
	// input cannot succeed, so callers should surface these directly.
	KindInvalidIdentifier     Kind = "invalid_identifier"
	KindUnboundPlaceholder    Kind = "unbound_placeholder"
	KindUnvalidatedIdentifier Kind = "unvalidated_identifier"
	KindRejectedStatement     Kind = "rejected_statement"
	KindDDLNotPermitted       Kind = "ddl_not_permitted"

	// Store-level execution failures.
	KindNotFound         Kind = "not_found"
	KindSyntax           Kind = "syntax_error"
	KindConstraint       Kind = "constraint_violation"
	KindTimeout          Kind = "timeout"
	KindStoreUnavailable Kind = "store_unavailable"
	KindUnknown          Kind = "unknown_execution_error"
)

// Error is a structured safe-execution error.
//
// Message is always safe to return to a caller. The underlying cause (raw
// driver diagnostics) is kept in Cause for server-side logging only; for
// KindUnknown the CorrelationID ties the sanitized message to the server log
// line that holds the raw diagnostic.
type Error struct {
	Kind          Kind
	Message       string
	CorrelationID string
	Cause         error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("%s: %s (correlation_id=%s)", e.Kind, e.Message, e.CorrelationID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a structured error of the given kind.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from an error. Errors that did not originate in
// this package report KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
