package pipeserver

import (
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

var responsePool = &ResponsePool{}

type response struct {
	index int
	id    uint64
	buf   *bytebufferpool.ByteBuffer // payload, nil for an acknowledgment
}

type ResponsePool struct {
	sp sync.Pool
	m  PoolMetrics
}

func (p *ResponsePool) acquire(index int, id uint64, payload []byte) *response {
	v := p.sp.Get()
	if v == nil {
		v = &response{}
		atomic.AddUint32(&p.m.na, uint32(1))
	} else {
		atomic.AddUint32(&p.m.nr, uint32(1))
	}

	res := v.(*response)
	res.index = index
	res.id = id
	if payload != nil {
		res.buf = bytebufferpool.Get()
		res.buf.B = append(res.buf.B[:0], payload...)
	}
	return res
}

func (p *ResponsePool) release(res *response) {
	if res.buf != nil {
		bytebufferpool.Put(res.buf)
		res.buf = nil
	}
	p.sp.Put(res)
	atomic.AddUint32(&p.m.np, uint32(1))
}
