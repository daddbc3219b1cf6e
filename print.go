package headway

import (
	"fmt"
	"io"
)

// Print writes host output to the progress stream without corrupting the
// display: any visible frame is erased first, the text lands as ordinary
// scrollback, and the bars repaint on the next tick. With no bars on
// screen it behaves exactly like fmt.Print to the output.
func Print(args ...any) {
	getManager().gate.WriteForeign([]byte(fmt.Sprint(args...)))
}

// Printf is Print with fmt.Printf formatting.
func Printf(format string, args ...any) {
	getManager().gate.WriteForeign(fmt.Appendf(nil, format, args...))
}

// Println is Print with a trailing newline.
func Println(args ...any) {
	getManager().gate.WriteForeign([]byte(fmt.Sprintln(args...)))
}

type foreignWriter struct{}

func (foreignWriter) Write(p []byte) (int, error) {
	return getManager().gate.WriteForeign(p)
}

// Writer returns an io.Writer that routes through the display, suitable
// for handing to log.SetOutput or any library that wants a destination:
//
//	log.SetOutput(headway.Writer())
//
// For clean interleaving each Write should carry whole lines, which is
// how the log package already behaves.
func Writer() io.Writer { return foreignWriter{} }
