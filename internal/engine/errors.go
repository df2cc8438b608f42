package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure so transports can map it to a status
// code without parsing reasons.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
)

// Error is an operator-facing failure. Reason is safe to surface verbatim.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func validationErr(format string, args ...any) error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

func conflictErr(format string, args ...any) error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from an error chain. The second return is
// false for internal errors that should not be surfaced as client mistakes.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
