// Command headway-demo exercises the progress display interactively. Each
// scenario shows one feature; run it in a terminal to see live bars, or
// pipe it through cat to see the plain non-interactive degradation.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/HalfVoxel/headway"
)

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FF8C00")).
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#FF6600")).
	Padding(0, 2)

var scenarios map[string]func()

func init() {
	scenarios = map[string]func(){
		"simple":        simple,
		"multiple":      multiple,
		"split":         split,
		"nested":        nested,
		"print":         printing,
		"indeterminate": indeterminate,
		"iterate":       iterate,
		"abandon":       abandon,
		"all":           all,
	}
}

func main() {
	scenario := flag.String("scenario", "all", "which demo to run: simple, multiple, split, nested, print, indeterminate, iterate, abandon, all")
	flag.Parse()

	run, ok := scenarios[*scenario]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *scenario)
		flag.Usage()
		os.Exit(2)
	}

	run()
	headway.Shutdown()
}

func banner(title string) {
	headway.Println(bannerStyle.Render(title))
}

func step() { time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond) }

func all() {
	for _, name := range []string{"simple", "multiple", "split", "nested", "print", "indeterminate", "iterate", "abandon"} {
		scenarios[name]()
		time.Sleep(400 * time.Millisecond)
	}
}

func simple() {
	banner("one bar, one goroutine")
	bar := headway.New(50, "crunching")
	for range 50 {
		step()
		bar.Inc()
	}
	bar.Finish()
}

func multiple() {
	banner("several bars from several goroutines")
	var g errgroup.Group
	for i := range 3 {
		bar := headway.New(30, fmt.Sprintf("worker %d", i+1))
		g.Go(func() error {
			for range 30 {
				step()
				bar.Inc()
			}
			bar.Finish()
			return nil
		})
	}
	g.Wait()
}

func split() {
	banner("weighted split")
	total := headway.New(100, "release")
	weights := []uint64{30, 10}
	parts, err := total.Split(
		headway.Part{Weight: weights[0], Label: "build"},
		headway.Part{Weight: weights[1], Label: "upload"},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	var g errgroup.Group
	for i, p := range parts {
		w := weights[i]
		g.Go(func() error {
			for range w {
				step()
				p.Inc()
			}
			p.Finish()
			return nil
		})
	}
	g.Wait()
}

func nested() {
	banner("nested split")
	root := headway.New(1, "pipeline")
	stages, _ := root.SplitEven(2, "stage 1", "stage 2")
	for _, stage := range stages {
		steps, _ := stage.Split(
			headway.Part{Weight: 10, Label: "fetch"},
			headway.Part{Weight: 10, Label: "apply"},
		)
		for _, s := range steps {
			for range 10 {
				step()
				s.Inc()
			}
			s.Finish()
		}
	}
}

func printing() {
	banner("printing while bars are live")
	bar := headway.New(40, "migrating")
	for i := range 40 {
		step()
		bar.Inc()
		if i%10 == 9 {
			headway.Printf("batch %d committed\n", i/10+1)
		}
	}
	bar.Finish()
}

func indeterminate() {
	banner("unknown total")
	bar := headway.NewIndeterminate("scanning")
	for range 60 {
		step()
		bar.Inc()
	}
	bar.FinishLabel("scan complete")
}

func iterate() {
	banner("iterator adapter")
	files := []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"}
	for range headway.Items(files, "copying") {
		time.Sleep(200 * time.Millisecond)
	}
}

func abandon() {
	banner("abandoned work")
	bar := headway.New(80, "flaky transfer")
	for range 30 {
		step()
		bar.Inc()
	}
	headway.Println("connection lost, giving up")
	bar.Abandon()
	time.Sleep(time.Second)
}
