package pipeserver

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("invalid pipe server config")
	ErrSizeMismatch     = errors.New("data does not match expected size")
	ErrPollFailed       = errors.New("polling pipes failed")
	ErrServerClosed     = errors.New("pipe server closed")
	ErrAlreadyResponded = errors.New("request already responded to")
	ErrHandlerPanic     = errors.New("request handler panicked")

	// errStale marks a completion that belongs to an operation the
	// connection no longer waits for.
	errStale = errors.New("stale completion")
)

// OpError names the pipe operation that failed and the slot it failed on.
// Slot is -1 for operations on the shared endpoint.
type OpError struct {
	Op   string
	Slot int
	Err  error
}

func (e *OpError) Error() string {
	if e.Slot < 0 {
		return fmt.Sprintf("pipe %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pipe %s (slot %d): %v", e.Op, e.Slot, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

const (
	opListen     = "listen"
	opConnect    = "connect"
	opRead       = "read"
	opWrite      = "write"
	opDisconnect = "disconnect"
)

// isFatal reports whether err must end the poller instead of being healed by
// reconnecting the connection it happened on.
func isFatal(err error) bool {
	var opErr *OpError
	if errors.As(err, &opErr) && opErr.Op == opDisconnect {
		return true
	}
	return errors.Is(err, ErrPollFailed)
}
