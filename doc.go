// Package headway renders live-updating progress bars to a terminal while
// the host program keeps working and printing.
//
// Bars are cheap, thread-safe handles over shared state. A background
// scheduler redraws the display on a fixed cadence, so the frame stays
// fresh even when updates are sparse, and tight increment loops coalesce
// into single redraws instead of flooding the terminal. Host output
// routed through Print, Printf, Println or Writer appears exactly as if
// no bars were on screen: the frame is erased first and repainted on the
// next tick.
//
//	bar := headway.New(100, "processing")
//	for i := 0; i < 100; i++ {
//		work(i)
//		bar.Inc()
//		if i%10 == 0 {
//			headway.Printf("checkpoint %d\n", i)
//		}
//	}
//	bar.Finish()
//
// A bar can be split into weighted sub-bars, possibly driven from
// different goroutines:
//
//	parts, _ := bar.Split(
//		headway.Part{Weight: 3, Label: "download"},
//		headway.Part{Weight: 1, Label: "verify"},
//	)
//
// When the output is not a terminal (for instance redirected to a file),
// nothing is ever rendered and no escape sequence is written; printing
// degrades to a plain passthrough.
package headway
