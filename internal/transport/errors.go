package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a transport failure.
type Kind int

const (
	KindConnectionRefused Kind = iota
	KindTimeout
	KindWriteError
	KindDeviceNotFound
	KindIOError
	KindBackendUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindConnectionRefused:
		return "connection refused"
	case KindTimeout:
		return "timeout"
	case KindWriteError:
		return "write error"
	case KindDeviceNotFound:
		return "device not found"
	case KindIOError:
		return "io error"
	case KindBackendUnavailable:
		return "backend unavailable"
	default:
		return "unknown"
	}
}

// Error is a transport-level failure, always attributable to a single
// delivery attempt on a single transport.
type Error struct {
	Transport string
	Kind      Kind
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s transport: %s: %v", e.Transport, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s transport: %s", e.Transport, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps cause as a transport failure of the given kind.
func NewError(transport string, kind Kind, cause error) *Error {
	return &Error{Transport: transport, Kind: kind, Err: cause}
}

// IsKind reports whether err is (or wraps) a transport Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}
