package pipeserver

import (
	"sync"
)

// router carries responses from any goroutine back to the poller. Producers
// push and set ready; the poller pops one response per observed signal.
type router struct {
	ready *signal

	mu     sync.Mutex
	queue  []*response
	closed bool
}

func newRouter() *router {
	return &router{ready: newSignal()}
}

func (r *router) push(res *response) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrServerClosed
	}
	r.queue = append(r.queue, res)
	r.mu.Unlock()

	r.ready.set()
	return nil
}

// pop dequeues the oldest response. more reports whether responses remain
// queued; ready coalesces sets, so the poller re-arms it in that case.
func (r *router) pop() (res *response, more bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		return nil, false
	}
	res = r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]
	return res, len(r.queue) > 0
}

// close rejects further pushes and releases whatever is still queued.
func (r *router) close() {
	r.mu.Lock()
	queue := r.queue
	r.queue = nil
	r.closed = true
	r.mu.Unlock()

	for _, res := range queue {
		responsePool.release(res)
	}
}
