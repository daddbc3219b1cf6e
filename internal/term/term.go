//go:generate mockgen -source=term.go -destination=mocks/mock_term.go -package=mocks

// Package term abstracts the output stream and terminal geometry behind
// small interfaces so the rest of the library never touches os.Stdout
// directly and tests can substitute in-memory sinks.
package term

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	xterm "golang.org/x/term"
)

// Sink is the destination for all progress output. Interactive reports
// whether the stream is attached to a terminal; when it is not, no escape
// sequence is ever written to it.
type Sink interface {
	io.Writer
	Flush() error
	Interactive() bool
}

// Geometry reports the current terminal width in columns. The second
// return value is false when the width cannot be determined, which makes
// the renderer fall back to plain, glyph-free lines.
type Geometry interface {
	Width() (int, bool)
}

type fileSink struct {
	f           *os.File
	interactive bool
}

// Stdout returns a Sink over the process's standard output. Interactivity
// is detected once at construction; forceTTY overrides the detection for
// environments that emulate a terminal.
func Stdout(forceTTY bool) Sink {
	fd := os.Stdout.Fd()
	interactive := forceTTY || isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return &fileSink{f: os.Stdout, interactive: interactive}
}

func (s *fileSink) Write(p []byte) (int, error) { return s.f.Write(p) }

// Flush is a no-op: os.File writes are unbuffered and frames are written
// in a single call.
func (s *fileSink) Flush() error { return nil }

func (s *fileSink) Interactive() bool { return s.interactive }

type fileGeometry struct {
	f *os.File
}

// StdoutGeometry returns a Geometry probing the terminal attached to
// standard output.
func StdoutGeometry() Geometry { return fileGeometry{f: os.Stdout} }

func (g fileGeometry) Width() (int, bool) {
	w, _, err := xterm.GetSize(int(g.f.Fd()))
	if err != nil || w <= 0 {
		return 0, false
	}
	return w, true
}

// FixedGeometry always reports the given width. Zero or negative values
// report no width at all.
type FixedGeometry int

func (g FixedGeometry) Width() (int, bool) {
	if g <= 0 {
		return 0, false
	}
	return int(g), true
}

// WriterSink adapts an arbitrary io.Writer into a Sink with an explicit
// interactivity flag. Used by tests and by hosts that redirect progress
// output.
type WriterSink struct {
	mu          sync.Mutex
	w           io.Writer
	interactive bool
}

// NewWriterSink wraps w. Pass interactive=true to let frames render.
func NewWriterSink(w io.Writer, interactive bool) *WriterSink {
	return &WriterSink{w: w, interactive: interactive}
}

func (s *WriterSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *WriterSink) Flush() error { return nil }

func (s *WriterSink) Interactive() bool { return s.interactive }
