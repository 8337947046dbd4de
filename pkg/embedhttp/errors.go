package embedhttp

import (
	"errors"
	"fmt"

	"github.com/yndnr/embedhttp/pkg/sockets"
)

// Fault classifies an error surfaced by the server.
type Fault int

const (
	FaultNone Fault = iota
	// FaultTransport is an OS socket failure.
	FaultTransport
	// FaultLogic is a socket used in the wrong state, always a programming bug.
	FaultLogic
	// FaultHandler is an error or panic raised by a registered action.
	FaultHandler
	// FaultOther covers everything else.
	FaultOther
)

// String returns the fault name.
func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultTransport:
		return "transport"
	case FaultLogic:
		return "logic"
	case FaultHandler:
		return "handler"
	default:
		return "other"
	}
}

// HandlerError reports a failed action invocation.
type HandlerError struct {
	Method Method
	Path   string
	// Panic holds the recovered value when the action panicked.
	Panic any
	Err   error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("embedhttp: %s action %s panicked: %v", e.Method, e.Path, e.Panic)
	}
	return fmt.Sprintf("embedhttp: %s action %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns the error returned by the action, if any.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// FaultOf classifies err.
func FaultOf(err error) Fault {
	if err == nil {
		return FaultNone
	}
	var he *HandlerError
	if errors.As(err, &he) {
		return FaultHandler
	}
	var se *sockets.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case sockets.KindTransport:
			return FaultTransport
		case sockets.KindLogic:
			return FaultLogic
		}
	}
	return FaultOther
}
