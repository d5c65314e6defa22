package pipeserver

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	stopSlot      = 0
	responseSlot  = 1
	reservedSlots = 2
)

// connectionList is the pool of connection slots and the single multi-wait
// over their signals. events[i+reservedSlots] always belongs to
// connections[i]; both only ever grow, in lock-step.
type connectionList struct {
	ln      net.Listener
	reqSize int
	resSize int

	connections []*connection
	events      []*signal
	cases       []reflect.SelectCase
	free        int

	router    *router
	handler   Handler
	connState ConnStateHandler
	stats     *counters
	log       logrus.FieldLogger

	wg sync.WaitGroup // I/O goroutines
}

// newConnectionList borrows stop and the router's ready signal for the two
// reserved slots. It never closes either.
func newConnectionList(ln net.Listener, reqSize, resSize int, stop *signal, r *router,
	handler Handler, connState ConnStateHandler, stats *counters, log logrus.FieldLogger) *connectionList {
	l := &connectionList{
		ln:        ln,
		reqSize:   reqSize,
		resSize:   resSize,
		router:    r,
		handler:   handler,
		connState: connState,
		stats:     stats,
		log:       log,
	}
	for _, s := range []*signal{stop, r.ready} {
		l.events = append(l.events, s)
		l.cases = append(l.cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(s.c)})
	}
	return l
}

func (l *connectionList) grow(amount int) {
	l.free += amount
	for i := 0; i < amount; i++ {
		event := newSignal()
		p := newPipe(l.ln, l.reqSize, l.resSize, event, &l.wg)
		c := newConnection(len(l.connections), p, event, &l.free)
		c.connect()

		l.events = append(l.events, event)
		l.cases = append(l.cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(event.c)})
		l.connections = append(l.connections, c)
	}
	l.stats.addSlots(amount)
	l.log.WithFields(logrus.Fields{"amount": amount, "slots": len(l.connections)}).Debug("grew connection pool")
}

// ready resets and returns the lowest signaled slot, or -1.
func (l *connectionList) ready() int {
	for i, event := range l.events {
		if event.tryReset() {
			return i
		}
	}
	return -1
}

// wait blocks until a slot is signaled and returns the lowest signaled one.
// The slot the runtime picks is re-armed and the list rescanned in index
// order, so ties always go to the lowest index and stop wins over all.
func (l *connectionList) wait() (int, error) {
	for {
		if i := l.ready(); i >= 0 {
			return i, nil
		}
		chosen, _, ok := reflect.Select(l.cases)
		if !ok {
			return -1, fmt.Errorf("%w: signal %d was closed", ErrPollFailed, chosen)
		}
		l.events[chosen].set()
	}
}

// poll waits for one signal and services it. It reports true once stop has
// been requested.
func (l *connectionList) poll() (bool, error) {
	index, err := l.wait()
	if err != nil {
		return false, err
	}

	switch index {
	case stopSlot:
		return true, nil
	case responseSlot:
		return false, l.onResponseReady()
	}

	c := l.connections[index-reservedSlots]
	wasConnecting := c.state == StateConnecting
	dispatch, err := c.complete()
	if err != nil {
		return false, l.onError(c, err)
	}
	if wasConnecting {
		l.connState.HandleConnState(ConnInfo{Slot: c.index, ID: c.id, PID: peerPID(c.pipe.conn)}, c.state)
	}
	if dispatch {
		l.dispatch(c)
	}
	return false, nil
}

func (l *connectionList) onResponseReady() error {
	res, more := l.router.pop()
	if more {
		l.router.ready.set()
	}
	if res == nil {
		return nil
	}
	defer responsePool.release(res)

	if res.index < 0 || res.index >= len(l.connections) {
		return fmt.Errorf("%w: response for unknown slot %d", ErrPollFailed, res.index)
	}
	c := l.connections[res.index]
	if c.id != res.id || c.state != StateAwaitingResponse {
		l.stats.dropped.Add(1)
		droppedCounter.Inc()
		l.log.WithFields(c.fields()).WithField("response_id", res.id).Debug("dropping stale response")
		return nil
	}

	if res.buf == nil {
		l.stats.acks.Add(1)
		c.read()
	} else {
		l.stats.responses.Add(1)
		c.write(res.buf.B)
	}
	return nil
}

func (l *connectionList) onError(c *connection, err error) error {
	if errors.Is(err, errStale) {
		l.log.WithFields(c.fields()).Debug("ignoring stale completion")
		return nil
	}
	if isFatal(err) {
		return err
	}

	l.log.WithFields(c.fields()).WithError(err).Error("pipe connection problem")
	l.stats.reconnects.Add(1)
	reconnectsCounter.Inc()

	wasOccupied := c.occupied
	info := ConnInfo{Slot: c.index, ID: c.id}
	if err := c.reconnect(); err != nil {
		return err
	}
	if wasOccupied {
		l.connState.HandleConnState(info, StateDisconnected)
	}
	return nil
}

func (l *connectionList) dispatch(c *connection) {
	req := &Request{
		message: append([]byte(nil), c.buf[:l.reqSize]...),
		index:   c.index,
		id:      c.id,
		resSize: l.resSize,
		router:  l.router,
	}
	l.stats.requests.Add(1)
	requestsCounter.Inc()

	defer func() {
		if r := recover(); r != nil {
			l.log.WithFields(c.fields()).WithField("panic", r).Error("request handler panicked")
			c.fail(fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()
	l.handler.HandleRequest(req)
}

// close tears down every slot and waits for all I/O goroutines. The endpoint
// must already be closed so pending accepts return.
func (l *connectionList) close() error {
	var err error
	for _, c := range l.connections {
		err = multierr.Append(err, c.close())
	}
	l.wg.Wait()
	return err
}
