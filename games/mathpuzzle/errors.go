package mathpuzzle

import (
	"errors"
	"fmt"
)

var ErrServerFull = errors.New("server is full")

// ErrorKind classifies a rejected command.
type ErrorKind int

const (
	ProtocolError ErrorKind = iota
	AuthError
	StateError
	CapacityError
	AuthorizationError
)

func (k ErrorKind) String() string {
	switch k {
	case ProtocolError:
		return "protocol"
	case AuthError:
		return "auth"
	case StateError:
		return "state"
	case CapacityError:
		return "capacity"
	case AuthorizationError:
		return "authorization"
	default:
		return "unknown"
	}
}

// Error is reported to the originating session only, as ERROR|Reason.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func fail(kind ErrorKind, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

func failf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
