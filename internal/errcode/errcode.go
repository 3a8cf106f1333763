// Package errcode defines the engine's machine-readable error taxonomy and
// its HTTP mapping.
package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeValidation covers missing or invalid fields. Rejected before any
	// write.
	CodeValidation Code = "VALIDATION"

	// CodeLocked is returned when a non-elevated actor mutates a locked
	// decision.
	CodeLocked Code = "LOCKED"

	// CodeApprovalRequired is not a failure: the mutation was redirected
	// into the edit-request queue.
	CodeApprovalRequired Code = "APPROVAL_REQUIRED"

	// CodeNotFound covers missing entities.
	CodeNotFound Code = "NOT_FOUND"

	// CodeConflictNotFound covers resolving or dismissing a conflict that
	// no longer exists.
	CodeConflictNotFound Code = "CONFLICT_NOT_FOUND"

	// CodeRetired is returned for operations disallowed on retired
	// decisions.
	CodeRetired Code = "RETIRED"

	// CodeOracleUnavailable marks a detection-oracle outage. Detection
	// paths fail soft and never surface this to API callers.
	CodeOracleUnavailable Code = "ORACLE_UNAVAILABLE"

	// CodeForbidden covers privileged operations attempted by non-leads.
	CodeForbidden Code = "FORBIDDEN"
)

// Error pairs a code with a human-readable message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New builds a coded error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err. Errors without a code report the
// empty string.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Is lets callers match with errors.Is against a bare code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to the status the API surface should return.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeLocked, CodeForbidden:
		return http.StatusForbidden
	case CodeApprovalRequired:
		return http.StatusAccepted
	case CodeNotFound, CodeConflictNotFound:
		return http.StatusNotFound
	case CodeRetired:
		return http.StatusConflict
	case CodeOracleUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
