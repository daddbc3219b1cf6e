// Package gate serializes every byte that reaches the output stream. Frame
// redraws and arbitrary host writes go through the same mutex, so a print
// can never land in the middle of an escape sequence and a redraw can never
// tear a printed line.
//
// The erase discipline follows the classic multi-line progress scheme: the
// previous frame's height is remembered, the cursor moves to its first
// line and everything below is cleared before anything new is written.
package gate

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/HalfVoxel/headway/internal/logging"
	"github.com/HalfVoxel/headway/internal/metrics"
	"github.com/HalfVoxel/headway/internal/term"
)

// cursorToFrameTop moves to column 1, n lines up. clearBelow erases from
// the cursor to the end of the screen.
const (
	cursorToFrameTop = "\x1b[%dF"
	clearBelow       = "\x1b[0J"
)

// Gate owns the output sink. Exactly one writer holds it at a time; the
// lock covers only byte transfer, never frame computation.
type Gate struct {
	mu     sync.Mutex
	sink   term.Sink
	height int // lines of the currently displayed frame
	failed bool

	log       logging.Logger
	met       *metrics.Set
	onForeign func()
}

// New creates a gate over sink. onForeign runs (outside the lock) after
// every foreign write so the owner can mark the frame dirty.
func New(sink term.Sink, log logging.Logger, met *metrics.Set, onForeign func()) *Gate {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if onForeign == nil {
		onForeign = func() {}
	}
	return &Gate{sink: sink, log: log, met: met, onForeign: onForeign}
}

// Rendering reports whether frames are being written at all: the sink must
// be interactive and must not have failed.
func (g *Gate) Rendering() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.failed && g.sink.Interactive()
}

// Height reports the line count of the displayed frame.
func (g *Gate) Height() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.height
}

// WriteFrame replaces the displayed frame. On a non-interactive or failed
// sink it does nothing: no escape byte ever reaches a redirected stream.
func (g *Gate) WriteFrame(lines []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed || !g.sink.Interactive() {
		return
	}
	var buf bytes.Buffer
	g.eraseLocked(&buf)
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := g.writeAllLocked(buf.Bytes()); err != nil {
		g.failLocked(err)
		return
	}
	g.height = len(lines)
}

// WritePermanent erases the live frame and writes lines as ordinary
// scrollback output. Used for the final rendering of retired bars.
func (g *Gate) WritePermanent(lines []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed || !g.sink.Interactive() || len(lines) == 0 {
		return
	}
	var buf bytes.Buffer
	g.eraseLocked(&buf)
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := g.writeAllLocked(buf.Bytes()); err != nil {
		g.failLocked(err)
		return
	}
	g.height = 0
}

// WriteForeign passes host output through the gate. The live frame is
// erased first so the text appears exactly as if no bars were displayed;
// the next scheduled tick paints them back. On non-interactive sinks this
// is a pure passthrough.
func (g *Gate) WriteForeign(p []byte) (int, error) {
	g.mu.Lock()
	if !g.failed && g.sink.Interactive() && g.height > 0 {
		var buf bytes.Buffer
		g.eraseLocked(&buf)
		if err := g.writeAllLocked(buf.Bytes()); err != nil {
			g.failLocked(err)
		}
		g.height = 0
	}
	n, err := g.sink.Write(p)
	if flushErr := g.sink.Flush(); err == nil {
		err = flushErr
	}
	g.mu.Unlock()

	if g.met != nil {
		g.met.ForeignWrites.Inc()
	}
	g.onForeign()
	return n, err
}

// Clear erases the live frame, e.g. on shutdown.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed || !g.sink.Interactive() || g.height == 0 {
		return
	}
	var buf bytes.Buffer
	g.eraseLocked(&buf)
	if err := g.writeAllLocked(buf.Bytes()); err != nil {
		g.failLocked(err)
		return
	}
	g.height = 0
}

func (g *Gate) eraseLocked(buf *bytes.Buffer) {
	if g.height > 0 {
		fmt.Fprintf(buf, cursorToFrameTop, g.height)
		buf.WriteString(clearBelow)
	}
}

func (g *Gate) writeAllLocked(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := g.sink.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return err
	}
	return g.sink.Flush()
}

// failLocked permanently disables rendering for this sink. Progress
// reporting must never abort the host's work, so the error is absorbed:
// logged once, counted, and everything afterwards degrades to a no-op.
func (g *Gate) failLocked(err error) {
	if g.failed {
		return
	}
	g.failed = true
	g.height = 0
	if g.met != nil {
		g.met.WriteFailures.Inc()
	}
	g.log.Error("disabling progress rendering after write failure", err)
}
