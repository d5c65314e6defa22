package pipeserver

import (
	"net"
	"sync"
)

type opKind uint8

const (
	kindConnect opKind = iota
	kindRead
	kindWrite
)

// overlapped is the record of one asynchronous operation. The I/O goroutine
// fills it in and marks it done; the poller reads it only after observing
// the slot's signal.
type overlapped struct {
	kind opKind
	id   uint64

	done bool
	n    int
	conn net.Conn
	err  error

	finished chan struct{} // closed when the I/O goroutine exits
}

// pipe is one server-side slot of the named duplex channel. Every slot shares
// the server's endpoint; a slot is connected by accepting a client on it and
// disconnected by closing that client.
type pipe struct {
	ln      net.Listener
	inSize  int // request size
	outSize int // response size

	event *signal
	wg    *sync.WaitGroup

	conn net.Conn // poller only

	mu sync.Mutex
	ov *overlapped // the one outstanding operation, if any
}

func newPipe(ln net.Listener, inSize, outSize int, event *signal, wg *sync.WaitGroup) *pipe {
	return &pipe{ln: ln, inSize: inSize, outSize: outSize, event: event, wg: wg}
}

func (p *pipe) start(kind opKind, id uint64, fn func(op *overlapped)) {
	op := &overlapped{kind: kind, id: id, finished: make(chan struct{})}

	p.mu.Lock()
	p.ov = op
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(op.finished)

		fn(op)

		p.mu.Lock()
		current := p.ov == op
		if current {
			op.done = true
		}
		p.mu.Unlock()

		if !current {
			if op.conn != nil {
				_ = op.conn.Close()
			}
			return
		}
		p.event.set()
	}()
}

func (p *pipe) connect(id uint64) {
	p.start(kindConnect, id, func(op *overlapped) {
		op.conn, op.err = p.ln.Accept()
	})
}

func (p *pipe) read(id uint64, buf []byte) {
	conn := p.conn
	p.start(kindRead, id, func(op *overlapped) {
		op.n, op.err = readMessage(conn, buf, p.inSize)
	})
}

func (p *pipe) write(id uint64, buf []byte) {
	conn := p.conn
	p.start(kindWrite, id, func(op *overlapped) {
		op.n, op.err = conn.Write(buf)
	})
}

// result collects the completed operation issued under id. A completed
// connect installs the accepted client on the slot.
func (p *pipe) result(id uint64) (int, error) {
	p.mu.Lock()
	op := p.ov
	if op == nil || !op.done || op.id != id {
		p.mu.Unlock()
		return 0, errStale
	}
	p.ov = nil
	p.mu.Unlock()

	if op.err != nil {
		return op.n, op.err
	}
	if op.kind == kindConnect {
		p.conn = op.conn
	}
	return op.n, nil
}

// disconnect abandons the outstanding operation, closes the client and waits
// for an abandoned read or write to return so the I/O buffer is free again.
// An abandoned accept keeps running until the endpoint is closed.
func (p *pipe) disconnect() error {
	p.mu.Lock()
	op := p.ov
	p.ov = nil
	p.mu.Unlock()

	var err error
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	if op != nil && op.kind != kindConnect {
		<-op.finished
	}
	return err
}
