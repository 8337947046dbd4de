package embedhttp

import "time"

// Request kinds reported to an Observer.
const (
	KindStatic   = "static"
	KindTyped    = "typed"
	KindGeneric  = "generic"
	KindUnrouted = "unrouted"
)

// Request results reported to an Observer.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Observer receives measurements from a running server. Implementations
// must be safe for concurrent use; they are called from connection
// goroutines.
type Observer interface {
	ConnOpened()
	ConnClosed()
	RequestDone(method Method, kind, result string, elapsed time.Duration)
}

// NopObserver discards all measurements.
type NopObserver struct{}

func (NopObserver) ConnOpened() {}
func (NopObserver) ConnClosed() {}
func (NopObserver) RequestDone(Method, string, string, time.Duration) {}
