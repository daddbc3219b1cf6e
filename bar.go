package headway

import (
	"time"

	"github.com/HalfVoxel/headway/internal/logging"
	"github.com/HalfVoxel/headway/internal/tree"
)

// Part describes one child of a Split: its share of the parent's work and
// its label. Weights are relative; they do not need to sum to anything in
// particular.
type Part struct {
	Weight uint64
	Label  string
}

// Bar is a handle to one progress bar. Handles are cheap to copy, safe to
// share between goroutines, and remain valid after the bar finishes; every
// method on a finished bar is a harmless no-op.
type Bar struct {
	m  *manager
	id tree.NodeID
}

// New creates a top-level bar with a known total and registers it for
// display. total==0 renders empty until finished.
func New(total uint64, label string) *Bar {
	m := getManager()
	id := m.registry.NewRoot(total, true, label, time.Now())
	m.met.BarsCreated.Inc()
	m.log.Debug("bar created",
		logging.String("label", label),
		logging.Uint64("total", total),
	)
	return &Bar{m: m, id: id}
}

// NewIndeterminate creates a bar whose total is unknown. It renders a
// moving pulse instead of a fill; Inc and Add still track a raw count for
// the "(n/?)" readout.
func NewIndeterminate(label string) *Bar {
	m := getManager()
	id := m.registry.NewRoot(0, false, label, time.Now())
	m.met.BarsCreated.Inc()
	m.log.Debug("bar created", logging.String("label", label))
	return &Bar{m: m, id: id}
}

// Inc advances the bar by one unit.
func (b *Bar) Inc() { b.Add(1) }

// Add advances the bar by n units, clamped at the total.
func (b *Bar) Add(n uint64) {
	if b == nil {
		return
	}
	b.m.registry.Add(b.id, n)
}

// Set raises the bar's position to pos, clamped at the total. Progress is
// monotonic: a pos below the current position is ignored.
func (b *Bar) Set(pos uint64) {
	if b == nil {
		return
	}
	b.m.registry.Set(b.id, pos)
}

// SetLabel replaces the bar's label.
func (b *Bar) SetLabel(label string) {
	if b == nil {
		return
	}
	b.m.registry.SetLabel(b.id, label)
}

// Finish completes the bar: the position jumps to the total, the fill
// renders full, and after the grace period the line is retired to
// scrollback. Splitting and further updates become no-ops.
func (b *Bar) Finish() {
	if b == nil {
		return
	}
	b.m.registry.Finish(b.id, time.Now())
	b.m.afterTerminal()
}

// FinishLabel sets a final label and completes the bar in one step, so the
// retired scrollback line carries the closing text.
func (b *Bar) FinishLabel(label string) {
	if b == nil {
		return
	}
	b.m.registry.SetLabel(b.id, label)
	b.Finish()
}

// Abandon marks the bar terminal without completing it. The unreached
// remainder renders crossed out, recording that the work was given up
// rather than silently freezing the bar.
func (b *Bar) Abandon() {
	if b == nil {
		return
	}
	b.m.registry.Abandon(b.id, time.Now())
	b.m.afterTerminal()
}

// Fraction reports the bar's displayed progress in [0,1]. The second
// return value is false while the bar is indeterminate.
func (b *Bar) Fraction() (float64, bool) {
	if b == nil {
		return 0, false
	}
	return b.m.registry.Fraction(b.id)
}

// Split divides the bar into weighted sub-bars, one per part, returned in
// the same order. The parent's own counter stops mattering; from here on
// its progress is the weighted mean of the children, and it completes when
// they all do. Each child's total equals its weight, so a weight of 100
// doubles as a percentage scale.
//
// A bar can be split once. Splitting again, splitting a finished bar, or
// passing no parts or a zero weight returns one of the Err values.
func (b *Bar) Split(parts ...Part) ([]*Bar, error) {
	if b == nil {
		return nil, ErrFinished
	}
	tparts := make([]tree.Part, len(parts))
	for i, p := range parts {
		tparts[i] = tree.Part{Weight: p.Weight, Label: p.Label}
	}
	ids, err := b.m.registry.Split(b.id, tparts, time.Now())
	if err != nil {
		return nil, err
	}
	b.m.met.BarsCreated.Add(float64(len(ids)))
	children := make([]*Bar, len(ids))
	for i, id := range ids {
		children[i] = &Bar{m: b.m, id: id}
	}
	return children, nil
}

// SplitEven divides the bar into n equally weighted sub-bars.
func (b *Bar) SplitEven(n int, labels ...string) ([]*Bar, error) {
	parts := make([]Part, n)
	for i := range parts {
		parts[i].Weight = 1
		if i < len(labels) {
			parts[i].Label = labels[i]
		}
	}
	return b.Split(parts...)
}
