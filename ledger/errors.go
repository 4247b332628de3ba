package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger failure so callers (and the HTTP layer) can react
// without parsing messages.
type Kind string

const (
	KindUnauthorized                Kind = "UNAUTHORIZED"
	KindForbidden                   Kind = "FORBIDDEN"
	KindNotFound                    Kind = "NOT_FOUND"
	KindInvalidInput                Kind = "INVALID_INPUT"
	KindPinMismatch                 Kind = "PIN_MISMATCH"
	KindAlreadyProcessed            Kind = "ALREADY_PROCESSED"
	KindInsufficientFunds           Kind = "INSUFFICIENT_FUNDS"
	KindInsufficientDepartmentFunds Kind = "INSUFFICIENT_DEPARTMENT_FUNDS"
	KindConflict                    Kind = "CONFLICT"
	KindInternal                    Kind = "INTERNAL"
)

// Error carries a machine-readable kind plus a user-facing message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error, defaulting to KindInternal for
// anything that is not a ledger error (unexpected store failures).
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a ledger error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
