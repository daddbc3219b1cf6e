package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestSetRegistersAndCollects verifies the Set is a valid collector and
// exposes every counter under the headway namespace.
func TestSetRegistersAndCollects(t *testing.T) {
	t.Parallel()
	s := NewSet()
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(s); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	s.FramesRendered.Inc()
	s.FramesRendered.Inc()
	s.ForeignWrites.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{
		"headway_frames_rendered_total",
		"headway_foreign_writes_total",
		"headway_coalesced_redraws_total",
		"headway_write_failures_total",
		"headway_bars_created_total",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("gathered families missing %s (got %s)", want, joined)
		}
	}
}

// TestCounterValues verifies increments are observable.
func TestCounterValues(t *testing.T) {
	t.Parallel()
	s := NewSet()
	s.FramesRendered.Inc()
	s.FramesRendered.Inc()
	s.WriteFailures.Inc()

	if got := testutil.ToFloat64(s.FramesRendered); got != 2 {
		t.Errorf("FramesRendered = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.WriteFailures); got != 1 {
		t.Errorf("WriteFailures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.ForeignWrites); got != 0 {
		t.Errorf("ForeignWrites = %v, want 0", got)
	}
}
