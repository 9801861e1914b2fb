// Package s3errors implements the error taxonomy shared by every component
// of the request pipeline. There is a single concrete error type; the
// taxonomy is a closed set of Kind values, not a family of Go types.
package s3errors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error without exposing an implementation-specific type.
type Kind int

const (
	// KindUnknown is the zero value and should never be returned by the core.
	KindUnknown Kind = iota
	KindInvalidArgument
	KindInvalidEndpoint
	KindInvalidProtocol
	KindNetwork
	KindServerError
	KindUnexpectedStatus
	KindSizeMismatch
	KindAccessDenied
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindInvalidEndpoint:
		return "InvalidEndpoint"
	case KindInvalidProtocol:
		return "InvalidProtocol"
	case KindNetwork:
		return "Network"
	case KindServerError:
		return "ServerError"
	case KindUnexpectedStatus:
		return "UnexpectedStatus"
	case KindSizeMismatch:
		return "SizeMismatch"
	case KindAccessDenied:
		return "AccessDenied"
	default:
		return "Unknown"
	}
}

// Error is the single error type returned by every component in this
// client. Kind selects which taxonomy entry applies; the remaining fields
// are populated as available for that kind.
type Error struct {
	Kind Kind

	// HTTP status of the response that produced this error, if any.
	StatusCode int

	// Code and RequestID are populated for KindServerError, parsed from the
	// S3 <Error> XML document.
	Code      string
	RequestID string
	Resource  string

	Bucket string
	Object string

	Message string

	// Err is the wrapped transport or parse error, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("s3: %s: %s (request id %s)", e.Code, e.Message, e.RequestID)
	case e.Message != "":
		return fmt.Sprintf("s3: %s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("s3: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("s3: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, target) report true when target is an *Error of
// the same Kind, whatever its message; direct Kind comparison after
// errors.As (or KindOf) is the primary usage.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind wrapping a lower-level error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: err, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument is a convenience constructor for the most common kind
// raised synchronously at call sites.
func InvalidArgument(format string, args ...any) *Error {
	return New(KindInvalidArgument, format, args...)
}

// KindOf reports the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
