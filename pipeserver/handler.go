package pipeserver

// Handler receives every complete request. It runs on the poller goroutine,
// so it must not block; it may keep the request and answer it later from
// any goroutine.
type Handler interface {
	HandleRequest(req *Request)
}

type HandlerFunc func(req *Request)

func (fn HandlerFunc) HandleRequest(req *Request) { fn(req) }

var DefaultHandler HandlerFunc = func(req *Request) { _ = req.Acknowledge() }

// ConnInfo describes the client holding a slot.
type ConnInfo struct {
	Slot int
	ID   uint64
	PID  int // 0 when the platform cannot tell
}

type ConnStateHandler interface {
	HandleConnState(info ConnInfo, state ConnectionState)
}

type ConnStateHandlerFunc func(info ConnInfo, state ConnectionState)

func (fn ConnStateHandlerFunc) HandleConnState(info ConnInfo, state ConnectionState) { fn(info, state) }

var DefaultConnStateHandler ConnStateHandlerFunc = func(info ConnInfo, state ConnectionState) {}
