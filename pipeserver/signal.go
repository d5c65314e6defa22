package pipeserver

// signal is an auto-reset completion signal. Setting an already signaled
// signal is absorbed; the pool's wait resets whichever signal it reports.
type signal struct {
	c chan struct{}
}

func newSignal() *signal {
	return &signal{c: make(chan struct{}, 1)}
}

func (s *signal) set() {
	select {
	case s.c <- struct{}{}:
	default:
	}
}

// tryReset consumes a pending signal without blocking and reports whether
// there was one.
func (s *signal) tryReset() bool {
	select {
	case <-s.c:
		return true
	default:
		return false
	}
}
