// Package errs classifies bridge failures into the fixed error taxonomy
// that every response frame's error message is drawn from.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the fixed error categories a request can fail with.
type Kind int

const (
	// KindNone marks success; no response should ever carry it as a kind.
	KindNone Kind = iota
	KindShuttingDown
	KindUnknownKind
	KindInvalidArgument
	KindNotFound
	KindDuplicate
	KindNotReadable
	KindNotExecutable
	KindNotCommitted
	KindAccessViolation
	KindTimeout
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindShuttingDown:
		return "ShuttingDown"
	case KindUnknownKind:
		return "UnknownKind"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotFound:
		return "NotFound"
	case KindDuplicate:
		return "Duplicate"
	case KindNotReadable:
		return "NotReadable"
	case KindNotExecutable:
		return "NotExecutable"
	case KindNotCommitted:
		return "NotCommitted"
	case KindAccessViolation:
		return "AccessViolation"
	case KindTimeout:
		return "Timeout"
	case KindInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a classified bridge error carrying its kind and a human message.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.err }

// New builds a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an existing error, preserving it for errors.Is/As.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: err.Error(), err: err}
}

// Classify extracts the Kind of an error, defaulting to KindInternal for
// anything not produced by this package. Faults surfaced by a guarded
// dereference (see internal/memaccess) should always be wrapped before
// reaching here; an unclassified error reaching a response handler is a
// bug, not a client-facing distinction, so it collapses to Internal.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the text of err for a response's error message, or the
// empty string for a nil error. It does not truncate; wire.Fail and
// Response.Encode clip the text to the 256-byte wire field.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ErrShuttingDown is the fixed message used whenever the lifecycle atom is
// not Running; every request kind shares this single message per spec §4.2.
var ErrShuttingDown = New(KindShuttingDown, "bridge is shutting down")

// Sentinel constructors for the common cases so call sites read naturally.
func InvalidArgument(format string, args ...any) *Error {
	return New(KindInvalidArgument, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Duplicate(format string, args ...any) *Error {
	return New(KindDuplicate, format, args...)
}

func NotReadable(format string, args ...any) *Error {
	return New(KindNotReadable, format, args...)
}

func NotExecutable(format string, args ...any) *Error {
	return New(KindNotExecutable, format, args...)
}

func NotCommitted(format string, args ...any) *Error {
	return New(KindNotCommitted, format, args...)
}

func AccessViolation(format string, args ...any) *Error {
	return New(KindAccessViolation, format, args...)
}

func Timeout(format string, args ...any) *Error {
	return New(KindTimeout, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(KindInternal, format, args...)
}

func UnknownKind(format string, args ...any) *Error {
	return New(KindUnknownKind, format, args...)
}
