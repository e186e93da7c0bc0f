// Package nmoerr defines the error taxonomy shared by every layer of the
// codec: a fixed set of Kinds and a carrier type that remembers where an
// error was raised.
package nmoerr

import (
	"fmt"
	"runtime"

	"golang.org/x/xerrors"
)

// Kind enumerates the error taxonomy from the format's error handling design.
type Kind int

const (
	OK Kind = iota
	OutOfMemory
	InvalidArgument
	Eof
	NotFound
	AlreadyExists
	IoError
	FileNotFound
	InvalidData
	ValidationFailed
	ReferenceUnresolved
	PluginMissing
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case OutOfMemory:
		return "out of memory"
	case InvalidArgument:
		return "invalid argument"
	case Eof:
		return "eof"
	case NotFound:
		return "not found"
	case AlreadyExists:
		return "already exists"
	case IoError:
		return "io error"
	case FileNotFound:
		return "file not found"
	case InvalidData:
		return "invalid data"
	case ValidationFailed:
		return "validation failed"
	case ReferenceUnresolved:
		return "reference unresolved"
	case PluginMissing:
		return "plugin missing"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Severity distinguishes errors that abort a phase from ones a caller may
// choose to accumulate as warnings (see finish-loading stats).
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityWarning
)

// Error is the carrier returned by every fallible operation in the codec.
// Message is arena-free (it lives on the Go heap); the "arena-allocated
// message" language in the format's design talks about the reference engine,
// not this implementation.
type Error struct {
	Kind     Kind
	Severity Severity
	Message  string
	frame    string
	wrapped  error
}

func (e *Error) Error() string {
	if e.frame != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.frame)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// Is makes errors.Is(err, target) match when target is any *Error with the
// same Kind; see IsKind for testing against a bare Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs an Error at the caller's source location.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		frame:   caller(2),
	}
}

// Warn constructs a non-fatal Error (see finish-loading stats accumulation).
func Warn(kind Kind, format string, args ...interface{}) *Error {
	e := New(kind, format, args...)
	e.Severity = SeverityWarning
	return e
}

// Wrap attaches kind/context to an underlying error without losing it for
// errors.As/errors.Unwrap, following the %w convention the rest of the
// module uses via xerrors.Errorf.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: xerrors.Errorf(format+": %w", append(args, err)...).Error(),
		frame:   caller(2),
		wrapped: err,
	}
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// IsKind reports whether err (possibly wrapped) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.wrapped
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
