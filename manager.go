package headway

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HalfVoxel/headway/internal/config"
	"github.com/HalfVoxel/headway/internal/gate"
	"github.com/HalfVoxel/headway/internal/logging"
	"github.com/HalfVoxel/headway/internal/metrics"
	"github.com/HalfVoxel/headway/internal/render"
	"github.com/HalfVoxel/headway/internal/sched"
	"github.com/HalfVoxel/headway/internal/term"
	"github.com/HalfVoxel/headway/internal/tree"
)

// manager wires the registry, gate, renderer and scheduler together. One
// exists per process (per output stream, of which there is exactly one);
// it is created lazily on first use and replaced by SetOutput/Configure.
type manager struct {
	cfg config.Settings
	log logging.Logger
	met *metrics.Set

	registry *tree.Registry
	gate     *gate.Gate
	sched    *sched.Scheduler
	geo      term.Geometry

	dirty atomic.Bool
}

// Counters survive manager rebuilds so a registered collector stays live
// across SetOutput and Configure.
var sharedMetrics = metrics.NewSet()

var (
	managerMu      sync.Mutex
	defaultManager *manager

	// pending overrides applied when the next manager is built.
	pendingCfg  *config.Settings
	pendingSink term.Sink
	pendingGeo  term.Geometry
	pendingLog  logging.Logger
)

// getManager returns the process-wide manager, creating it on first use.
func getManager() *manager {
	managerMu.Lock()
	defer managerMu.Unlock()
	if defaultManager == nil {
		defaultManager = buildManagerLocked()
	}
	return defaultManager
}

func buildManagerLocked() *manager {
	cfg := config.Default()
	if pendingCfg != nil {
		cfg = *pendingCfg
	}
	sink := pendingSink
	if sink == nil {
		sink = term.Stdout(cfg.ForceTTY)
	}
	geo := pendingGeo
	if geo == nil {
		geo = term.StdoutGeometry()
	}
	log := pendingLog
	if log == nil {
		log = logging.NewDefaultLogger()
	}

	m := &manager{
		cfg: cfg,
		log: log,
		met: sharedMetrics,
		geo: geo,
	}
	m.registry = tree.NewRegistry(m.markDirty)
	m.gate = gate.New(sink, log, m.met, m.markDirty)
	m.sched = sched.New(cfg.RefreshInterval, m.tick)
	return m
}

// markDirty records that the display no longer matches the state and makes
// sure a redraw is coming. Updates landing on an already-dirty frame are
// coalesced.
func (m *manager) markDirty() {
	if m.dirty.Swap(true) {
		m.met.CoalescedRedraws.Inc()
		return
	}
	if m.cfg.Disabled || !m.gate.Rendering() {
		return
	}
	m.sched.Kick()
}

// tick is the scheduler callback: snapshot, render, write. forced ticks
// (the staleness bound) always redraw; wakeup ticks only when dirty or
// animating. Returns false once nothing is left to display.
func (m *manager) tick(now time.Time, forced bool) bool {
	if m.cfg.Disabled || !m.gate.Rendering() {
		// Rendering stopped mid-flight (write failure). Keep state
		// usable but let the goroutine go.
		m.registry.Prune(now)
		return false
	}

	rows, retired, active := m.registry.Snapshot(now, m.cfg.GracePeriod)
	dirty := m.dirty.Swap(false)
	if !forced && !dirty && len(retired) == 0 && !render.Animating(rows) {
		return active
	}

	width, hasWidth := m.geo.Width()
	if m.cfg.BarWidth > 0 && (!hasWidth || width > m.cfg.BarWidth) {
		width, hasWidth = m.cfg.BarWidth, true
	}

	if len(retired) > 0 {
		m.gate.WritePermanent(render.Frame(retired, width, hasWidth, now))
	}
	m.gate.WriteFrame(render.Frame(rows, width, hasWidth, now))
	m.met.FramesRendered.Inc()
	return active
}

// afterTerminal runs after Finish/Abandon. On sinks that never render,
// completed trees are pruned eagerly since no grace period applies.
func (m *manager) afterTerminal() {
	if m.cfg.Disabled || !m.gate.Rendering() {
		m.registry.Prune(time.Now())
	}
}

func (m *manager) shutdown() {
	m.registry.Drain()
	m.sched.Kick() // the loop observes the empty registry and exits
	// Wait out any tick in flight so no frame lands after the final erase.
	for i := 0; m.sched.Running() && i < 1000; i++ {
		time.Sleep(time.Millisecond)
	}
	m.gate.Clear()
}

// Shutdown removes all bars, erases the display and stops the background
// scheduler. The next bar creation starts fresh. Programs that exit
// through os.Exit while bars are visible should call this first so the
// terminal is left clean.
func Shutdown() {
	managerMu.Lock()
	m := defaultManager
	defaultManager = nil
	managerMu.Unlock()
	if m != nil {
		m.shutdown()
	}
}

// Option adjusts one display setting.
type Option func(*config.Settings)

// WithRefreshInterval sets the background redraw cadence. Values are
// clamped to a sane range.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *config.Settings) { s.RefreshInterval = d }
}

// WithGracePeriod sets how long a finished bar stays visible before it is
// retired to scrollback.
func WithGracePeriod(d time.Duration) Option {
	return func(s *config.Settings) { s.GracePeriod = d }
}

// WithBarWidth caps the rendered line width. It also serves as the width
// when the terminal size cannot be detected, such as on injected outputs.
func WithBarWidth(cols int) Option {
	return func(s *config.Settings) { s.BarWidth = cols }
}

// WithDisabled turns off all rendering while keeping progress state
// available programmatically.
func WithDisabled(disabled bool) Option {
	return func(s *config.Settings) { s.Disabled = disabled }
}

// Configure replaces the display settings. Existing bars are dropped, as
// with Shutdown; call it before creating bars.
func Configure(opts ...Option) {
	managerMu.Lock()
	cfg := config.Default()
	if pendingCfg != nil {
		cfg = *pendingCfg
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.Normalized()
	pendingCfg = &cfg
	m := defaultManager
	defaultManager = nil
	managerMu.Unlock()
	if m != nil {
		m.shutdown()
	}
}

// SetOutput redirects all progress output to w. interactive controls
// whether frames render; when false, w only ever receives foreign bytes.
// Width detection is unavailable on injected outputs, so rendered frames
// use WithBarWidth or the plain fallback. Existing bars are dropped.
//
// Pass nil to return to standard output.
func SetOutput(w io.Writer, interactive bool) {
	managerMu.Lock()
	if w == nil {
		pendingSink = nil
		pendingGeo = nil
	} else {
		pendingSink = term.NewWriterSink(w, interactive)
		pendingGeo = term.FixedGeometry(0)
	}
	m := defaultManager
	defaultManager = nil
	managerMu.Unlock()
	if m != nil {
		m.shutdown()
	}
}

// SetLogger routes the library's own diagnostics (absorbed I/O failures,
// lifecycle debug) to log. Diagnostics default to stderr; they never go
// to the progress output stream.
func SetLogger(log logging.Logger) {
	managerMu.Lock()
	pendingLog = log
	managerMu.Unlock()
}
