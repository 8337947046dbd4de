package sockets

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind classifies a socket failure.
type Kind int

const (
	// KindTransport is an operating system failure (bind, accept, resolve, I/O).
	KindTransport Kind = iota + 1
	// KindLogic is a programming error, such as reading from a listening socket
	// or using a socket after Close. Peer behavior never produces it.
	KindLogic
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindLogic:
		return "logic"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed is the cause of logic errors raised by operations on a closed socket.
	ErrClosed = errors.New("sockets: socket is closed")

	// ErrWrongState is the cause of logic errors raised when an operation is
	// not valid in the socket's current state.
	ErrWrongState = errors.New("sockets: operation not valid in current state")
)

// Error is returned by every Socket operation that fails.
type Error struct {
	Kind  Kind
	Op    string        // "listen", "accept", "connect", "read", "write", "close"
	Errno syscall.Errno // OS error code, zero when not applicable
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("sockets: %s %s error (errno %d): %v", e.Op, e.Kind, int(e.Errno), e.Err)
	}
	return fmt.Sprintf("sockets: %s %s error: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err carries a transport failure.
func IsTransport(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindTransport
}

// IsLogic reports whether err carries a logic (programming) error.
func IsLogic(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindLogic
}

// Errno extracts the OS error code from err, or zero.
func Errno(err error) syscall.Errno {
	var se *Error
	if errors.As(err, &se) && se.Errno != 0 {
		return se.Errno
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

func transportError(op string, err error) *Error {
	e := &Error{Kind: KindTransport, Op: op, Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		e.Errno = errno
	}
	return e
}

func logicError(op string, cause error) *Error {
	return &Error{Kind: KindLogic, Op: op, Err: cause}
}
