package pipeserver

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testName(t *testing.T) string {
	t.Helper()
	return "test-" + uuid.NewString()
}

// pipeListener hands out in-memory connections, standing in for the endpoint.
type pipeListener struct {
	conns  chan net.Conn
	closed chan struct{}
	once   sync.Once
}

func newPipeListener() *pipeListener {
	return &pipeListener{conns: make(chan net.Conn), closed: make(chan struct{})}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *pipeListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *pipeListener) Addr() net.Addr { return pipeAddr{} }

// dial blocks until a slot accepts the connection.
func (l *pipeListener) dial() net.Conn {
	return l.dialWrapped(func(c net.Conn) net.Conn { return c })
}

// dialWrapped is dial with the server side of the connection passed through
// wrap first.
func (l *pipeListener) dialWrapped(wrap func(net.Conn) net.Conn) net.Conn {
	server, client := net.Pipe()
	l.conns <- wrap(server)
	return client
}

var errCloseFailed = errors.New("close failed")

// badCloseConn closes the connection it wraps but reports failure.
type badCloseConn struct {
	net.Conn
}

func (c badCloseConn) Close() error {
	_ = c.Conn.Close()
	return errCloseFailed
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

func newTestList(ln net.Listener, handler Handler) *connectionList {
	return newConnectionList(ln, 4, 4, newSignal(), newRouter(), handler, DefaultConnStateHandler, &counters{}, quietLogger())
}
