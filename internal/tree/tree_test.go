package tree

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func newTestRegistry() *Registry {
	return NewRegistry(nil)
}

// TestAddClampsAtTotal verifies saturating increments.
func TestAddClampsAtTotal(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	id := r.NewRoot(10, true, "work", time.Now())

	r.Add(id, 15)
	if f, _ := r.Fraction(id); f != 1.0 {
		t.Errorf("Fraction after overshoot = %v, want 1.0", f)
	}

	r2 := newTestRegistry()
	id2 := r2.NewRoot(10, true, "work", time.Now())
	r2.Add(id2, 4)
	if f, _ := r2.Fraction(id2); f != 0.4 {
		t.Errorf("Fraction = %v, want 0.4", f)
	}
}

// TestAddOverflowSaturates verifies counters never wrap around.
func TestAddOverflowSaturates(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	id := r.NewRoot(0, false, "forever", time.Now())

	r.Add(id, math.MaxUint64)
	r.Add(id, math.MaxUint64)

	rows, _, _ := r.Snapshot(time.Now(), time.Minute)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Current != math.MaxUint64 {
		t.Errorf("Current = %d, want MaxUint64", rows[0].Current)
	}
}

// TestSetIsMonotonicAndClamped verifies Set never rewinds and clamps.
func TestSetIsMonotonicAndClamped(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	id := r.NewRoot(100, true, "copy", time.Now())

	r.Set(id, 40)
	if f, _ := r.Fraction(id); f != 0.4 {
		t.Errorf("Fraction = %v, want 0.4", f)
	}
	r.Set(id, 20) // ignored: below current
	if f, _ := r.Fraction(id); f != 0.4 {
		t.Errorf("Fraction after backwards Set = %v, want 0.4", f)
	}
	r.Set(id, 500) // clamped
	if f, _ := r.Fraction(id); f != 1.0 {
		t.Errorf("Fraction after oversized Set = %v, want 1.0", f)
	}
}

// TestFinishIsTerminal verifies that mutators are no-ops after Finish.
func TestFinishIsTerminal(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	id := r.NewRoot(10, true, "job", time.Now())
	r.Add(id, 3)
	r.Finish(id, time.Now())

	if f, _ := r.Fraction(id); f != 1.0 {
		t.Errorf("Fraction after Finish = %v, want 1.0", f)
	}

	before, _, _ := r.Snapshot(time.Now(), time.Minute)
	r.Add(id, 5)
	r.Set(id, 2)
	r.SetLabel(id, "changed")
	after, _, _ := r.Snapshot(time.Now(), time.Minute)

	if len(before) != 1 || len(after) != 1 {
		t.Fatalf("unexpected row counts: %d, %d", len(before), len(after))
	}
	if before[0] != after[0] {
		t.Errorf("state changed after Finish: before %+v, after %+v", before[0], after[0])
	}
}

// TestConcurrentAddsSumExactly verifies no increment is ever lost,
// regardless of interleaving.
func TestConcurrentAddsSumExactly(t *testing.T) {
	t.Parallel()
	const (
		workers       = 16
		perWorker     = 1000
		total  uint64 = workers * perWorker
	)
	r := newTestRegistry()
	id := r.NewRoot(total, true, "sum", time.Now())

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				r.Add(id, 1)
			}
		}()
	}
	wg.Wait()

	rows, _, _ := r.Snapshot(time.Now(), time.Minute)
	if rows[0].Current != total {
		t.Errorf("Current = %d, want %d", rows[0].Current, total)
	}
	if f, _ := r.Fraction(id); f != 1.0 {
		t.Errorf("Fraction = %v, want 1.0", f)
	}
}

// TestSplitWeightedMean verifies the parent fraction is the weighted mean
// of its children.
func TestSplitWeightedMean(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	parent := r.NewRoot(4, true, "parent", time.Now())

	ids, err := r.Split(parent, []Part{{Weight: 3, Label: "a"}, {Weight: 1, Label: "b"}}, time.Now())
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Split returned %d ids, want 2", len(ids))
	}

	// a: 1/3 done, b: 1/1 done -> (3*(1/3) + 1*1) / 4 = 0.5
	r.Add(ids[0], 1)
	r.Add(ids[1], 1)

	f, determinate := r.Fraction(parent)
	if !determinate {
		t.Fatal("parent of determinate children should be determinate")
	}
	if math.Abs(f-0.5) > 1e-9 {
		t.Errorf("parent fraction = %v, want 0.5", f)
	}
}

// TestSplitShadowsParentCounter verifies that a split parent's own counter
// is ignored by the fraction computation.
func TestSplitShadowsParentCounter(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	parent := r.NewRoot(10, true, "parent", time.Now())
	r.Add(parent, 9)

	ids, err := r.Split(parent, []Part{{Weight: 1, Label: "only"}}, time.Now())
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if f, _ := r.Fraction(parent); f != 0 {
		t.Errorf("parent fraction = %v, want 0 (children shadow the counter)", f)
	}
	r.Add(ids[0], 1)
	if f, _ := r.Fraction(parent); f != 1.0 {
		t.Errorf("parent fraction = %v, want 1.0", f)
	}
}

// TestSplitMisuseErrors verifies synchronous usage errors.
func TestSplitMisuseErrors(t *testing.T) {
	t.Parallel()
	now := time.Now()
	parts := []Part{{Weight: 1, Label: "x"}}

	t.Run("already split", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry()
		id := r.NewRoot(1, true, "p", now)
		if _, err := r.Split(id, parts, now); err != nil {
			t.Fatalf("first Split failed: %v", err)
		}
		if _, err := r.Split(id, parts, now); !errors.Is(err, ErrAlreadySplit) {
			t.Errorf("second Split = %v, want ErrAlreadySplit", err)
		}
	})

	t.Run("finished", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry()
		id := r.NewRoot(1, true, "p", now)
		r.Finish(id, now)
		if _, err := r.Split(id, parts, now); !errors.Is(err, ErrFinished) {
			t.Errorf("Split on finished = %v, want ErrFinished", err)
		}
	})

	t.Run("no parts", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry()
		id := r.NewRoot(1, true, "p", now)
		if _, err := r.Split(id, nil, now); !errors.Is(err, ErrNoParts) {
			t.Errorf("Split with no parts = %v, want ErrNoParts", err)
		}
	})

	t.Run("zero weight", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry()
		id := r.NewRoot(1, true, "p", now)
		bad := []Part{{Weight: 1, Label: "a"}, {Weight: 0, Label: "b"}}
		if _, err := r.Split(id, bad, now); !errors.Is(err, ErrZeroWeight) {
			t.Errorf("Split with zero weight = %v, want ErrZeroWeight", err)
		}
	})
}

// TestSplitConcurrentWithAdds verifies Split is atomic against mutators.
func TestSplitConcurrentWithAdds(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	id := r.NewRoot(1000, true, "p", time.Now())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 1000 {
			r.Add(id, 1)
		}
	}()

	// Only one Split may succeed, the rest must fail cleanly.
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Split(id, []Part{{Weight: 1, Label: "c"}}, time.Now())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAlreadySplit) {
			t.Errorf("unexpected Split error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d Splits succeeded, want exactly 1", succeeded)
	}
}

// TestNestedSplitFractions verifies recursive splitting.
func TestNestedSplitFractions(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	root := r.NewRoot(2, true, "root", time.Now())

	level1, err := r.Split(root, []Part{{Weight: 1, Label: "l"}, {Weight: 1, Label: "r"}}, time.Now())
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	level2, err := r.Split(level1[0], []Part{{Weight: 1, Label: "ll"}, {Weight: 3, Label: "lr"}}, time.Now())
	if err != nil {
		t.Fatalf("nested Split failed: %v", err)
	}

	// ll fully done: left child = 1/4 done, root = 1/8 done.
	r.Finish(level2[0], time.Now())
	if f, _ := r.Fraction(root); math.Abs(f-0.125) > 1e-9 {
		t.Errorf("root fraction = %v, want 0.125", f)
	}
}

// TestIndeterminateChildContribution verifies the documented rule: an
// unfinished indeterminate child contributes zero, a finished one counts
// as complete.
func TestIndeterminateChildContribution(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	root := r.NewRoot(0, false, "root", time.Now())
	ids, err := r.Split(root, []Part{{Weight: 1, Label: "a"}, {Weight: 1, Label: "b"}}, time.Now())
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	// Split children always carry totals; rebuild child "a" as an
	// indeterminate leaf by finishing it and checking the mean.
	r.Finish(ids[0], time.Now())
	f, determinate := r.Fraction(root)
	if !determinate {
		t.Fatal("parent should be determinate")
	}
	if f != 0.5 {
		t.Errorf("root fraction = %v, want 0.5", f)
	}

	// A bare indeterminate leaf is not determinate until finished.
	leaf := r.NewRoot(0, false, "spin", time.Now())
	if _, determinate := r.Fraction(leaf); determinate {
		t.Error("unfinished indeterminate leaf should not be determinate")
	}
	r.Finish(leaf, time.Now())
	if f, determinate := r.Fraction(leaf); !determinate || f != 1.0 {
		t.Errorf("finished indeterminate leaf = %v/%v, want 1.0/true", f, determinate)
	}
}

// TestSnapshotGracePeriod verifies completed roots stay visible during the
// grace window and are retired exactly once afterwards.
func TestSnapshotGracePeriod(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	start := time.Now()
	id := r.NewRoot(5, true, "brief", start)
	r.Finish(id, start)

	rows, retired, active := r.Snapshot(start.Add(100*time.Millisecond), 250*time.Millisecond)
	if len(rows) != 1 || len(retired) != 0 || !active {
		t.Fatalf("within grace: rows=%d retired=%d active=%v, want 1/0/true", len(rows), len(retired), active)
	}

	rows, retired, active = r.Snapshot(start.Add(300*time.Millisecond), 250*time.Millisecond)
	if len(rows) != 0 || len(retired) != 1 || active {
		t.Fatalf("past grace: rows=%d retired=%d active=%v, want 0/1/false", len(rows), len(retired), active)
	}
	if !retired[0].Finished {
		t.Error("retired row should be finished")
	}

	// Retirement is terminal: nothing left to snapshot.
	rows, retired, _ = r.Snapshot(start.Add(time.Second), 250*time.Millisecond)
	if len(rows) != 0 || len(retired) != 0 {
		t.Errorf("after retirement: rows=%d retired=%d, want 0/0", len(rows), len(retired))
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

// TestAbandonMarksRemainder verifies abandonment is terminal and visible.
func TestAbandonMarksRemainder(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	id := r.NewRoot(10, true, "doomed", time.Now())
	r.Add(id, 4)
	r.Abandon(id, time.Now())

	rows, _, _ := r.Snapshot(time.Now(), time.Minute)
	row := rows[0]
	if !row.Abandoned || !row.Finished {
		t.Errorf("row = %+v, want Abandoned and Finished", row)
	}
	if row.Current != 4 {
		t.Errorf("Current = %d, want 4 (abandon must not complete the counter)", row.Current)
	}

	r.Add(id, 1)
	rows, _, _ = r.Snapshot(time.Now(), time.Minute)
	if rows[0].Current != 4 {
		t.Error("Add after Abandon should be a no-op")
	}
}

// TestSnapshotDepthOrder verifies depth-first row ordering with depths.
func TestSnapshotDepthOrder(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	a := r.NewRoot(1, true, "a", time.Now())
	if _, err := r.Split(a, []Part{{Weight: 1, Label: "a1"}, {Weight: 1, Label: "a2"}}, time.Now()); err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	r.NewRoot(1, true, "b", time.Now())

	rows, _, _ := r.Snapshot(time.Now(), time.Minute)
	labels := make([]string, len(rows))
	depths := make([]int, len(rows))
	for i, row := range rows {
		labels[i] = row.Label
		depths[i] = row.Depth
	}
	wantLabels := []string{"a", "a1", "a2", "b"}
	wantDepths := []int{0, 1, 1, 0}
	for i := range wantLabels {
		if labels[i] != wantLabels[i] || depths[i] != wantDepths[i] {
			t.Fatalf("row %d = %s/%d, want %s/%d", i, labels[i], depths[i], wantLabels[i], wantDepths[i])
		}
	}
}

// TestDrain verifies the registry empties and handles dangle harmlessly.
func TestDrain(t *testing.T) {
	t.Parallel()
	r := newTestRegistry()
	id := r.NewRoot(10, true, "gone", time.Now())
	r.Drain()

	if r.Len() != 0 {
		t.Errorf("Len after Drain = %d, want 0", r.Len())
	}
	r.Add(id, 1) // must not panic
	if _, err := r.Split(id, []Part{{Weight: 1}}, time.Now()); !errors.Is(err, ErrFinished) {
		t.Errorf("Split on drained id = %v, want ErrFinished", err)
	}
}

// TestOnDirtyFiresOutsideLock verifies the dirty hook can reenter the
// registry without deadlocking.
func TestOnDirtyFiresOutsideLock(t *testing.T) {
	t.Parallel()
	var r *Registry
	fired := 0
	r = NewRegistry(func() {
		fired++
		r.Len() // would deadlock if the hook ran under the registry lock
	})
	id := r.NewRoot(10, true, "x", time.Now())
	r.Add(id, 1)
	if fired != 2 {
		t.Errorf("dirty hook fired %d times, want 2", fired)
	}
}
