package headway

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector returns a Prometheus collector exposing the display's
// internal counters (frames rendered, coalesced redraws, foreign writes,
// write failures, bars created). Register it on an application registry to
// observe redraw behavior:
//
//	prometheus.MustRegister(headway.MetricsCollector())
func MetricsCollector() prometheus.Collector {
	return sharedMetrics
}
