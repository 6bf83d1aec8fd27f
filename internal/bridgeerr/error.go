// Package bridgeerr gives every adapter in this module a single error
// shape: a Kind an operator-facing handler can branch on, plus the
// underlying cause for logging. It wraps github.com/pkg/errors rather
// than re-implementing stack capture.
package bridgeerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why an operation failed. It is not meant to be
// exhaustive for every Go stdlib error; only the cases the bridge
// itself needs to branch on.
type Kind int

const (
	// Other is the zero value so a naively-constructed Error doesn't
	// masquerade as one of the more specific kinds.
	Other Kind = iota
	InvalidData
	NotFound
	IO
	Transport
	EOF
)

func (k Kind) String() string {
	switch k {
	case InvalidData:
		return "invalid-data"
	case NotFound:
		return "not-found"
	case IO:
		return "io"
	case Transport:
		return "transport"
	case EOF:
		return "eof"
	default:
		return "other"
	}
}

// Error pairs a Kind with the underlying cause. The cause is preserved
// for %+v / errors.Cause, but the Kind is what callers are expected to
// switch on.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Cause() error { return e.cause }

// New builds a Kind-tagged error from a format string, with a stack
// trace attached via errors.Errorf.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// Wrap attaches a Kind and a stack trace to an existing cause. Returns
// nil if cause is nil, matching errors.Wrap's convention.
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrap(cause, msg)}
}

// Is reports whether the first *Error in err's chain (err itself, or
// the nearest *Error it wraps) carries the given Kind. An *Error
// wrapped further inside that one is not consulted.
func Is(err error, kind Kind) bool {
	var be *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			be = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return be != nil && be.Kind == kind
}
