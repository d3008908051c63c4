// Package fault classifies user-facing operation outcomes. Every mutating
// operation returns either its result or an error carrying one of these
// kinds; the HTTP layer maps kinds to status codes without inspecting
// messages.
package fault

import "errors"

// Kind partitions expected failures from defects.
type Kind int

const (
	// KindInternal is an unexpected failure; the transaction has been rolled
	// back and the raw cause is not shown to the user.
	KindInternal Kind = iota
	// KindForbidden is a policy denial.
	KindForbidden
	// KindInvalid is rejected input.
	KindInvalid
	// KindConflict is a uniqueness violation.
	KindConflict
	// KindNotFound is a missing referenced entity.
	KindNotFound
)

// Error is a classified, user-facing error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Forbidden builds a policy-denial error.
func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Msg: msg} }

// Invalid builds a bad-input error.
func Invalid(msg string) error { return &Error{Kind: KindInvalid, Msg: msg} }

// Conflict builds a uniqueness-violation error.
func Conflict(msg string) error { return &Error{Kind: KindConflict, Msg: msg} }

// NotFound builds a missing-entity error.
func NotFound(msg string) error { return &Error{Kind: KindNotFound, Msg: msg} }

// Internal wraps an unexpected failure with a generic message.
func Internal(msg string) error { return &Error{Kind: KindInternal, Msg: msg} }

// KindOf extracts the kind from err, defaulting to KindInternal for
// unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
