package pipeserver

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateReading
	StateAwaitingResponse
	StateWriting
	StateFailedIO
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReading:
		return "reading"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateWriting:
		return "writing"
	case StateFailedIO:
		return "failed-io"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// connection is one pool slot. All of its fields belong to the poller.
type connection struct {
	index int
	id    uint64
	state ConnectionState
	err   error // why the connection is in StateFailedIO

	reqSize int
	resSize int
	buf     []byte

	// occupied is set while a client holds the slot; free counts the slots
	// of the pool that are not occupied.
	occupied bool
	free     *int

	pipe  *pipe
	event *signal
}

func newConnection(index int, p *pipe, event *signal, free *int) *connection {
	size := p.inSize
	if p.outSize > size {
		size = p.outSize
	}
	return &connection{
		index:   index,
		reqSize: p.inSize,
		resSize: p.outSize,
		buf:     make([]byte, size+1),
		free:    free,
		pipe:    p,
		event:   event,
	}
}

func (c *connection) fields() logrus.Fields {
	return logrus.Fields{"slot": c.index, "id": c.id, "state": c.state}
}

func (c *connection) connect() {
	if c.state != StateDisconnected {
		panic("pipeserver: tried to connect an already-active pipe")
	}
	c.state = StateConnecting
	c.pipe.connect(c.id)
}

func (c *connection) read() {
	c.state = StateReading
	c.pipe.read(c.id, c.buf)
}

func (c *connection) write(payload []byte) {
	if c.state != StateAwaitingResponse {
		panic("pipeserver: write on a connection that is not awaiting a response")
	}
	copy(c.buf, payload)
	c.state = StateWriting
	c.pipe.write(c.id, c.buf[:c.resSize])
}

// complete collects the operation the connection's signal reported and
// advances the state machine. It returns true when a request is ready to be
// dispatched.
func (c *connection) complete() (bool, error) {
	switch c.state {
	case StateConnecting:
		if _, err := c.pipe.result(c.id); err != nil {
			return false, c.wrap(opConnect, err)
		}
		c.onNewConnection()
		return false, nil
	case StateReading:
		n, err := c.pipe.result(c.id)
		if err != nil {
			return false, c.wrap(opRead, err)
		}
		if n != c.reqSize {
			return false, c.wrap(opRead, fmt.Errorf("%w: read %d bytes, want %d", ErrSizeMismatch, n, c.reqSize))
		}
		c.state = StateAwaitingResponse
		return true, nil
	case StateWriting:
		n, err := c.pipe.result(c.id)
		if err != nil {
			return false, c.wrap(opWrite, err)
		}
		if n != c.resSize {
			return false, c.wrap(opWrite, fmt.Errorf("%w: wrote %d bytes, want %d", ErrSizeMismatch, n, c.resSize))
		}
		c.read()
		return false, nil
	case StateFailedIO:
		return false, c.err
	}
	// Disconnected and awaiting-response slots have nothing in flight.
	return false, errStale
}

func (c *connection) wrap(op string, err error) error {
	if errors.Is(err, errStale) {
		return err
	}
	return &OpError{Op: op, Slot: c.index, Err: err}
}

func (c *connection) onNewConnection() {
	c.occupied = true
	*c.free--
	c.read()
}

// fail parks the connection in StateFailedIO and signals it so the next poll
// tick reconnects it.
func (c *connection) fail(err error) {
	c.state = StateFailedIO
	c.err = err
	c.event.set()
}

func (c *connection) disconnect() error {
	if c.state == StateDisconnected {
		panic("pipeserver: tried to disconnect an already-inactive pipe")
	}
	c.id++
	c.state = StateDisconnected
	c.err = nil
	if c.occupied {
		c.occupied = false
		*c.free++
	}
	if err := c.pipe.disconnect(); err != nil {
		return &OpError{Op: opDisconnect, Slot: c.index, Err: err}
	}
	return nil
}

func (c *connection) reconnect() error {
	if c.state != StateDisconnected {
		if err := c.disconnect(); err != nil {
			return err
		}
	}
	c.connect()
	return nil
}

// close releases the slot's client for good. It does not touch the id or the
// free count; the pool is going away.
func (c *connection) close() error {
	if c.state == StateDisconnected {
		return nil
	}
	c.state = StateDisconnected
	if err := c.pipe.disconnect(); err != nil {
		return &OpError{Op: opDisconnect, Slot: c.index, Err: err}
	}
	return nil
}
