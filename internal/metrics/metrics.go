// Package metrics instruments the progress display with Prometheus
// counters. Nothing is registered globally: the Set implements
// prometheus.Collector, and hosts that want the numbers register it on
// whatever registry they already run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "headway"

// Set holds every counter the display maintains.
type Set struct {
	// FramesRendered counts full frame redraws written to the sink.
	FramesRendered prometheus.Counter
	// ForeignWrites counts writes routed through the gate by host code.
	ForeignWrites prometheus.Counter
	// CoalescedRedraws counts dirty-marks absorbed into an already
	// pending redraw instead of triggering their own.
	CoalescedRedraws prometheus.Counter
	// WriteFailures counts sink write errors. The first one disables
	// rendering, so in practice this is 0 or 1 per sink.
	WriteFailures prometheus.Counter
	// BarsCreated counts top-level and split bars ever created.
	BarsCreated prometheus.Counter
}

// NewSet creates an unregistered metrics set.
func NewSet() *Set {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}
	return &Set{
		FramesRendered:   counter("frames_rendered_total", "Full frame redraws written to the output."),
		ForeignWrites:    counter("foreign_writes_total", "Host writes serialized through the output gate."),
		CoalescedRedraws: counter("coalesced_redraws_total", "Progress updates absorbed into a pending redraw."),
		WriteFailures:    counter("write_failures_total", "Output write errors; the first disables rendering."),
		BarsCreated:      counter("bars_created_total", "Progress bars created, including split children."),
	}
}

// Describe implements prometheus.Collector.
func (s *Set) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range s.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (s *Set) Collect(ch chan<- prometheus.Metric) {
	for _, c := range s.collectors() {
		c.Collect(ch)
	}
}

func (s *Set) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		s.FramesRendered,
		s.ForeignWrites,
		s.CoalescedRedraws,
		s.WriteFailures,
		s.BarsCreated,
	}
}
