package pipeserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jpillora/backoff"
)

// Client is the other end of a server slot: it writes fixed-size requests
// and reads fixed-size responses. Request and Send are safe for concurrent
// use; exchanges are serialized.
type Client struct {
	conn    net.Conn
	reqSize int
	resSize int

	mu  sync.Mutex
	buf []byte
}

// Dial connects to the server named name once.
func Dial(name string, reqSize, resSize int) (*Client, error) {
	conn, err := dial(context.Background(), name)
	if err != nil {
		return nil, fmt.Errorf("dial %q: %w", address(name), err)
	}
	return newClient(conn, reqSize, resSize), nil
}

// DialContext keeps trying to connect until it succeeds or ctx is done, so a
// helper may start before the server does.
func DialContext(ctx context.Context, name string, reqSize, resSize int) (*Client, error) {
	b := &backoff.Backoff{
		Factor: 1.5,
		Jitter: true,
		Min:    10 * time.Millisecond,
		Max:    1 * time.Second,
	}

	for {
		conn, err := dial(ctx, name)
		if err == nil {
			return newClient(conn, reqSize, resSize), nil
		}

		if werr := sleep(ctx, b.Duration()); werr != nil {
			return nil, fmt.Errorf("dial %q: %w (last error: %v)", address(name), werr, err)
		}
	}
}

func newClient(conn net.Conn, reqSize, resSize int) *Client {
	return &Client{conn: conn, reqSize: reqSize, resSize: resSize, buf: make([]byte, resSize+1)}
}

// Request sends req and waits for the response. It must only be used for
// requests the server answers with Respond.
func (c *Client) Request(req []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(req); err != nil {
		return nil, err
	}
	return c.receive()
}

// Send writes req without waiting for an answer, for requests the server
// acknowledges.
func (c *Client) Send(req []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.send(req)
}

// Receive reads one response.
func (c *Client) Receive() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.receive()
}

func (c *Client) send(req []byte) error {
	if len(req) != c.reqSize {
		return fmt.Errorf("%w: request is %d bytes, want %d", ErrSizeMismatch, len(req), c.reqSize)
	}
	n, err := c.conn.Write(req)
	if err != nil {
		return err
	}
	if n != c.reqSize {
		return fmt.Errorf("%w: wrote %d bytes, want %d", ErrSizeMismatch, n, c.reqSize)
	}
	return nil
}

func (c *Client) receive() ([]byte, error) {
	n, err := readMessage(c.conn, c.buf, c.resSize)
	if err != nil {
		return nil, err
	}
	if n != c.resSize {
		return nil, fmt.Errorf("%w: read %d bytes, want %d", ErrSizeMismatch, n, c.resSize)
	}
	return append([]byte(nil), c.buf[:n]...), nil
}

func (c *Client) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

func (c *Client) Close() error { return c.conn.Close() }
