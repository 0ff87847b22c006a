// Package errors defines the engine's fatal-error taxonomy (spec §7).
// Non-fatal outcomes (DuplicateId, UnknownOrder, ...) are surfaced as
// lob.RejectReason values on a Rejected event and never reach here;
// this package is reserved for the handful of conditions that must halt
// the engine.
package errors

import (
	"fmt"
	"runtime"
)

// Code identifies a class of fatal invariant violation.
type Code string

const (
	// CodeInvalidHandle: a handle's generation tag did not match the
	// slot's current generation at dereference time.
	CodeInvalidHandle Code = "INVALID_HANDLE"
	// CodeInvariantViolation: a book invariant (I1-I7 in spec §3) was
	// found false after a mutation.
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
	// CodeTornListLinks: a price level's linked list failed a
	// head/tail/prev/next consistency check.
	CodeTornListLinks Code = "TORN_LIST_LINKS"
)

// FatalError is raised by the book when a condition spec §7 calls
// fatal is detected, including an arena error on a handle the book
// holds (the arena itself returns plain sentinel errors). The engine catches it, emits one Halted
// event, and stops consuming commands; it never attempts self-repair.
type FatalError struct {
	Code    Code
	Message string
	File    string
	Line    int
	Cause   error
}

func (e *FatalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (at %s:%d): %v", e.Code, e.Message, e.File, e.Line, e.Cause)
	}
	return fmt.Sprintf("[%s] %s (at %s:%d)", e.Code, e.Message, e.File, e.Line)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// Fatalf builds a FatalError capturing the caller's location, the way
// production diagnostics need to point straight at the offending check.
func Fatalf(code Code, format string, args ...interface{}) *FatalError {
	_, file, line, _ := runtime.Caller(1)
	return &FatalError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		File:    file,
		Line:    line,
	}
}

// WithCause attaches an underlying cause to a FatalError.
func (e *FatalError) WithCause(cause error) *FatalError {
	e.Cause = cause
	return e
}
