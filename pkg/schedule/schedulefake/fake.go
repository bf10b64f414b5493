// Package schedulefake provides a manually advanced schedule.Scheduler.
package schedulefake

import (
	"sort"
	"sync"
	"time"

	"github.com/medreserve/medreserve-client/pkg/schedule"
)

type timer struct {
	at  time.Time
	seq uint64
	fn  func()

	done bool
}

// Scheduler is a deterministic clock. Callbacks only run from Advance, on
// the goroutine calling it, in deadline order.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*timer
}

var _ schedule.Scheduler = (*Scheduler)(nil)

func New(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.now
}

func (s *Scheduler) Schedule(delay time.Duration, fn func()) schedule.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if delay < 0 {
		delay = 0
	}

	s.seq++
	t := &timer{at: s.now.Add(delay), seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)

	return &handle{scheduler: s, timer: t}
}

// Advance moves the clock forward by d, firing every callback that falls due,
// including callbacks scheduled by other callbacks during the advance.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.popDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.at
		s.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of callbacks waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}

func (s *Scheduler) popDue(target time.Time) *timer {
	if len(s.timers) == 0 {
		return nil
	}

	sort.Slice(s.timers, func(i, j int) bool {
		if s.timers[i].at.Equal(s.timers[j].at) {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].at.Before(s.timers[j].at)
	})

	first := s.timers[0]
	if first.at.After(target) {
		return nil
	}

	s.timers = s.timers[1:]
	first.done = true

	return first
}

type handle struct {
	scheduler *Scheduler
	timer     *timer
}

func (h *handle) Cancel() bool {
	h.scheduler.mu.Lock()
	defer h.scheduler.mu.Unlock()

	if h.timer.done {
		return false
	}
	h.timer.done = true

	for i, t := range h.scheduler.timers {
		if t == h.timer {
			h.scheduler.timers = append(h.scheduler.timers[:i], h.scheduler.timers[i+1:]...)
			break
		}
	}

	return true
}
