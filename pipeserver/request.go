package pipeserver

import (
	"fmt"
	"sync/atomic"
)

// Request is one message read from a client together with the capability to
// answer it. Exactly one Respond or Acknowledge call succeeds.
type Request struct {
	message []byte

	index   int
	id      uint64
	resSize int
	router  *router

	answered atomic.Bool
}

// Message returns the request payload. It is owned by the request.
func (r *Request) Message() []byte { return r.message }

// Slot returns the index of the connection slot the request arrived on.
func (r *Request) Slot() int { return r.index }

// Respond sends payload back to the client and resumes reading from it.
func (r *Request) Respond(payload []byte) error {
	if len(payload) != r.resSize {
		return fmt.Errorf("%w: response is %d bytes, want %d", ErrSizeMismatch, len(payload), r.resSize)
	}
	return r.answer(payload)
}

// Acknowledge resumes reading from the client without sending anything.
func (r *Request) Acknowledge() error {
	return r.answer(nil)
}

func (r *Request) answer(payload []byte) error {
	if !r.answered.CompareAndSwap(false, true) {
		return ErrAlreadyResponded
	}
	res := responsePool.acquire(r.index, r.id, payload)
	if err := r.router.push(res); err != nil {
		responsePool.release(res)
		return err
	}
	return nil
}
