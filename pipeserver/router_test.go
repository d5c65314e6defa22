package pipeserver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouterManyProducers(t *testing.T) {
	r := newRouter()

	n, m := 8, 128

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			for j := 0; j < m; j++ {
				require.NoError(t, r.push(responsePool.acquire(i, uint64(j), []byte{byte(i)})))
			}
		}(i)
	}
	wg.Wait()

	// Every push set the same signal; it fired once.
	require.True(t, r.ready.tryReset())
	require.False(t, r.ready.tryReset())

	last := make(map[int]int)
	popped := 0
	for {
		res, more := r.pop()
		if res == nil {
			break
		}
		popped++

		// Per producer, responses come out in push order.
		if prev, ok := last[res.index]; ok {
			require.Greater(t, int(res.id), prev)
		}
		last[res.index] = int(res.id)
		require.Equal(t, []byte{byte(res.index)}, res.buf.B)
		responsePool.release(res)

		if !more {
			break
		}
	}
	require.Equal(t, n*m, popped)
}

func TestRouterClosed(t *testing.T) {
	r := newRouter()
	require.NoError(t, r.push(responsePool.acquire(0, 0, nil)))

	r.close()

	res, more := r.pop()
	require.Nil(t, res)
	require.False(t, more)
	res = responsePool.acquire(0, 0, nil)
	require.ErrorIs(t, r.push(res), ErrServerClosed)
	responsePool.release(res)
}
