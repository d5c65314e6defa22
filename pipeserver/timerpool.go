package pipeserver

import (
	"context"
	"sync"
	"time"
)

var timerPool sync.Pool

// sleep waits for d or until ctx is done, reusing pooled timers.
func sleep(ctx context.Context, d time.Duration) error {
	t, _ := timerPool.Get().(*time.Timer)
	if t == nil {
		t = time.NewTimer(d)
	} else {
		t.Reset(d)
	}
	defer timerPool.Put(t)

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		return ctx.Err()
	}
}
