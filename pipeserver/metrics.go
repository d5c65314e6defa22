package pipeserver

import (
	"fmt"
	"sync/atomic"

	metrics "github.com/docker/go-metrics"
)

// na + nr equal the total number of acquires
// na + nr - np equal the number of responses still in flight.
type PoolMetrics struct {
	na uint32 // number of new acquires
	nr uint32 // number of reuse from pool
	np uint32 // number of put back to pool
}

func (p *PoolMetrics) metricsString() string {
	return fmt.Sprintf("[%d, %d, %d]", atomic.LoadUint32(&p.na), atomic.LoadUint32(&p.nr), atomic.LoadUint32(&p.np))
}

// JSONStringPoolMetrics reports the response pool counters as
// new/reuse/putback.
func JSONStringPoolMetrics() string {
	return fmt.Sprintf(`{"responsePool": %s}`, responsePool.m.metricsString())
}

var (
	slotsGauge        metrics.Gauge
	freeGauge         metrics.Gauge
	requestsCounter   metrics.Counter
	reconnectsCounter metrics.Counter
	droppedCounter    metrics.Counter
)

func init() {
	ns := metrics.NewNamespace("wlw", "pipeserver", nil)
	slotsGauge = ns.NewGauge("connection_slots", "The number of connection slots across all pipe server pools", metrics.Total)
	freeGauge = ns.NewGauge("free_connections", "The number of connection slots waiting for a client", metrics.Total)
	requestsCounter = ns.NewCounter("requests", "The number of requests dispatched to handlers")
	reconnectsCounter = ns.NewCounter("reconnects", "The number of connections reset after an I/O error")
	droppedCounter = ns.NewCounter("dropped_responses", "The number of responses dropped because their connection moved on")
	metrics.Register(ns)
}

// Stats is a snapshot of one server's pool.
type Stats struct {
	Slots      int
	Free       int
	Requests   uint64
	Responses  uint64
	Acks       uint64
	Reconnects uint64
	Dropped    uint64
}

type counters struct {
	slots      atomic.Int64
	free       atomic.Int64
	requests   atomic.Uint64
	responses  atomic.Uint64
	acks       atomic.Uint64
	reconnects atomic.Uint64
	dropped    atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Slots:      int(c.slots.Load()),
		Free:       int(c.free.Load()),
		Requests:   c.requests.Load(),
		Responses:  c.responses.Load(),
		Acks:       c.acks.Load(),
		Reconnects: c.reconnects.Load(),
		Dropped:    c.dropped.Load(),
	}
}

func (c *counters) setFree(n int) {
	prev := c.free.Swap(int64(n))
	if delta := int64(n) - prev; delta != 0 {
		freeGauge.Add(float64(delta))
	}
}

func (c *counters) addSlots(n int) {
	c.slots.Add(int64(n))
	slotsGauge.Add(float64(n))
}
