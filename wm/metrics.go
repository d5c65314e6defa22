package wm

import metrics "github.com/docker/go-metrics"

var (
	eventTimer     metrics.LabeledTimer
	windowsGauge   metrics.Gauge
	droppedCounter metrics.Counter
)

func init() {
	ns := metrics.NewNamespace("wlw", "wm", nil)
	eventTimer = ns.NewLabeledTimer("hook_events", "The number of seconds it takes to handle each kind of hook event", "kind")
	windowsGauge = ns.NewGauge("windows", "The number of windows currently tracked", metrics.Total)
	droppedCounter = ns.NewCounter("dropped_hook_events", "The number of hook events acknowledged unhandled because the backlog was full")
	metrics.Register(ns)
}
