// Package render turns progress snapshots into the lines of a frame. It is
// purely computational: no I/O, no locks, no escape sequences. Cursor
// control is the gate's business; this package only decides what each line
// looks like at a given instant.
package render

import (
	"strings"
	"time"

	runewidth "github.com/mattn/go-runewidth"

	"github.com/HalfVoxel/headway/internal/format"
	"github.com/HalfVoxel/headway/internal/tree"
)

const (
	barFilled      = '█'
	barEmpty       = ' '
	barAbandoned   = 'X'
	barLeftBorder  = '▕'
	barRightBorder = '▏'
	pulseBlank     = '░'
)

// barPartial maps a remainder of n eighths to the glyph filling n/8 of a
// cell. Index 0 is unused; a zero remainder renders nothing.
var barPartial = []rune{' ', '▏', '▎', '▍', '▌', '▋', '▊', '▉', '█'}

const (
	// minBarCells is the smallest bar worth drawing. Below this the line
	// degrades to the plain percentage fallback.
	minBarCells = 8
	// indentStep is the indentation per tree depth level.
	indentStep = 2
	// pulseStep is the animation cadence of indeterminate bars.
	pulseStep = 120 * time.Millisecond
	// pulseWidth is the width of the moving block in an indeterminate bar.
	pulseWidth = 3
)

// Frame renders every row into its display line. width is the usable
// column count; hasWidth=false activates the glyph-free fallback for every
// line.
func Frame(rows []tree.Row, width int, hasWidth bool, now time.Time) []string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = Line(row, width, hasWidth, now)
	}
	return lines
}

// Animating reports whether the frame must keep redrawing even without
// progress updates, because some visible bar is an unfinished spinner.
func Animating(rows []tree.Row) bool {
	for _, row := range rows {
		if !row.Finished && !row.Determinate {
			return true
		}
	}
	return false
}

// Line renders a single row:
//
//	label ▕██████▌   ▏ 52% (13/25) eta 4.0s
//
// The label is truncated to at most a third of the width so the bar keeps
// room to move. When no width is known the line is plain text with no
// glyphs at all.
func Line(row tree.Row, width int, hasWidth bool, now time.Time) string {
	indent := strings.Repeat(" ", row.Depth*indentStep)
	suffix := lineSuffix(row, now)

	if !hasWidth {
		return plainLine(indent, row.Label, suffix)
	}

	label := row.Label
	if maxLabel := (width - len(indent)) / 3; maxLabel >= 4 && runewidth.StringWidth(label) > maxLabel {
		label = runewidth.Truncate(label, maxLabel, "…")
	}

	used := len(indent) + runewidth.StringWidth(label) + 2 // borders
	if label != "" {
		used++ // space between label and bar
	}
	used += 1 + runewidth.StringWidth(suffix) // space before suffix
	cells := width - used
	if cells < minBarCells {
		return plainLine(indent, row.Label, suffix)
	}

	var b strings.Builder
	b.WriteString(indent)
	if label != "" {
		b.WriteString(label)
		b.WriteByte(' ')
	}
	b.WriteRune(barLeftBorder)
	switch {
	case row.Abandoned:
		b.WriteString(abandonedFill(row.Fraction, cells))
	case !row.Determinate && !row.Finished:
		b.WriteString(pulse(cells, now.Sub(row.StartedAt)))
	default:
		b.WriteString(fill(row.Fraction, cells))
	}
	b.WriteRune(barRightBorder)
	b.WriteByte(' ')
	b.WriteString(suffix)
	return b.String()
}

func plainLine(indent, label, suffix string) string {
	if label == "" {
		return indent + suffix
	}
	return indent + label + " " + suffix
}

// lineSuffix builds the percentage/count/eta columns for a row.
func lineSuffix(row tree.Row, now time.Time) string {
	var parts []string
	if row.Determinate || row.Finished {
		parts = append(parts, format.Percent(row.Fraction))
	} else {
		parts = append(parts, "  ?%")
	}
	if row.HasTotal || row.Current > 0 {
		parts = append(parts, format.Count(row.Current, row.Total, row.HasTotal))
	}
	if row.Determinate && !row.Finished && row.Fraction > 0 && row.Fraction < 1 {
		if eta, ok := format.ETA(now.Sub(row.StartedAt), row.Fraction); ok {
			parts = append(parts, format.FormatETA(eta))
		}
	}
	return strings.Join(parts, " ")
}

// fill renders a determinate bar. The fraction maps to eighths of a cell:
// floor(f*cells*8) total eighths, drawn as full blocks, at most one
// partial-block glyph, then empty cells.
func fill(f float64, cells int) string {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	eighths := int(f * float64(cells) * 8)
	if eighths > cells*8 {
		eighths = cells * 8
	}
	full := eighths / 8
	rem := eighths % 8

	var b strings.Builder
	b.Grow(cells)
	for range full {
		b.WriteRune(barFilled)
	}
	if rem > 0 {
		b.WriteRune(barPartial[rem])
		full++
	}
	for i := full; i < cells; i++ {
		b.WriteRune(barEmpty)
	}
	return b.String()
}

// abandonedFill renders completed progress normally and marks the part
// that will never complete.
func abandonedFill(f float64, cells int) string {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	full := int(f * float64(cells))
	if full > cells {
		full = cells
	}
	var b strings.Builder
	b.Grow(cells)
	for range full {
		b.WriteRune(barFilled)
	}
	for i := full; i < cells; i++ {
		b.WriteRune(barAbandoned)
	}
	return b.String()
}

// pulse renders the indeterminate animation: a block bouncing across the
// bar, advancing one cell per pulseStep.
func pulse(cells int, elapsed time.Duration) string {
	if cells <= pulseWidth {
		return strings.Repeat(string(pulseBlank), cells)
	}
	span := cells - pulseWidth
	step := int(elapsed/pulseStep) % (2 * span)
	pos := step
	if pos > span {
		pos = 2*span - pos
	}

	var b strings.Builder
	b.Grow(cells)
	for i := range cells {
		if i >= pos && i < pos+pulseWidth {
			b.WriteRune(barFilled)
		} else {
			b.WriteRune(pulseBlank)
		}
	}
	return b.String()
}
