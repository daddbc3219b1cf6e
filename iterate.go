package headway

import "iter"

// Each wraps seq so that iterating it drives bar: every element advances
// the bar by one before being yielded. When the sequence is exhausted the
// bar finishes; when the consumer breaks out early the bar is abandoned,
// so the display reflects that the traversal did not run to completion.
func Each[T any](bar *Bar, seq iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			bar.Inc()
			if !yield(v) {
				bar.Abandon()
				return
			}
		}
		bar.Finish()
	}
}

// Each2 is Each for key/value sequences.
func Each2[K, V any](bar *Bar, seq iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for k, v := range seq {
			bar.Inc()
			if !yield(k, v) {
				bar.Abandon()
				return
			}
		}
		bar.Finish()
	}
}

// Items creates a bar sized to the slice and returns a sequence over its
// elements that advances the bar as it is consumed:
//
//	for f := range headway.Items(files, "copying") {
//		copy(f)
//	}
func Items[S ~[]T, T any](items S, label string) iter.Seq[T] {
	bar := New(uint64(len(items)), label)
	return Each(bar, func(yield func(T) bool) {
		for _, v := range items {
			if !yield(v) {
				return
			}
		}
	})
}

// Count creates a bar over the half-open range [0,n) and returns the
// sequence of indices, advancing the bar per index.
func Count(n uint64, label string) iter.Seq[uint64] {
	bar := New(n, label)
	return Each(bar, func(yield func(uint64) bool) {
		for i := uint64(0); i < n; i++ {
			if !yield(i) {
				return
			}
		}
	})
}

// Seq wraps a sequence of unknown length with an indeterminate bar.
// Infinite sequences are fine; the bar pulses and counts "(n/?)" until the
// consumer stops.
func Seq[T any](seq iter.Seq[T], label string) iter.Seq[T] {
	return Each(NewIndeterminate(label), seq)
}

// SplitEach splits bar into one equally weighted child per element and
// yields each element alongside its child, so per-element work gets its
// own visible sub-bar:
//
//	seq, err := headway.SplitEach(bar, shards)
//	for sub, shard := range seq {
//		process(shard, sub)
//	}
//
// A child not finished by the consumer finishes when the iteration moves
// past it. Breaking out early abandons the current child and every later
// one. Split's usage errors apply; an empty slice returns ErrNoParts.
func SplitEach[S ~[]T, T any](bar *Bar, items S) (iter.Seq2[*Bar, T], error) {
	parts := make([]Part, len(items))
	for i := range parts {
		parts[i].Weight = 1
	}
	children, err := bar.Split(parts...)
	if err != nil {
		return nil, err
	}
	return func(yield func(*Bar, T) bool) {
		for i, v := range items {
			child := children[i]
			if !yield(child, v) {
				for _, c := range children[i:] {
					c.Abandon()
				}
				return
			}
			child.Finish()
		}
	}, nil
}
