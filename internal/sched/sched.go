// Package sched drives periodic redraws. It runs at most one background
// goroutine, started lazily when bars exist and exiting on its own once
// they are gone: an Idle -> Running -> Idle state machine keyed off the
// tick callback's answer, with a channel wakeup instead of busy polling.
package sched

import (
	"sync"
	"time"
)

// TickFunc performs one redraw opportunity. forced is true on timer ticks
// (the staleness bound) and false on explicit wakeups, which the owner may
// coalesce. The return value reports whether anything is left to display;
// false sends the scheduler back to Idle.
type TickFunc func(now time.Time, forced bool) bool

// Scheduler owns the redraw goroutine.
type Scheduler struct {
	interval time.Duration
	tick     TickFunc

	mu      sync.Mutex
	running bool
	wake    chan struct{}
}

// New creates an idle scheduler ticking at the given interval.
func New(interval time.Duration, tick TickFunc) *Scheduler {
	return &Scheduler{
		interval: interval,
		tick:     tick,
		wake:     make(chan struct{}, 1),
	}
}

// Kick ensures the loop is running and requests a prompt tick. Safe to
// call from any goroutine; a kick during shutdown restarts the loop.
func (s *Scheduler) Kick() {
	s.mu.Lock()
	if !s.running {
		s.running = true
		go s.loop()
	}
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Running reports whether the background goroutine currently exists.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		forced := false
		select {
		case <-ticker.C:
			forced = true
		case <-s.wake:
		}
		if s.tick(time.Now(), forced) {
			continue
		}
		// Nothing left to display. Stop, unless a kick raced in after
		// the final tick; then keep going so its update is not lost.
		s.mu.Lock()
		select {
		case <-s.wake:
			s.mu.Unlock()
			continue
		default:
		}
		s.running = false
		s.mu.Unlock()
		return
	}
}
