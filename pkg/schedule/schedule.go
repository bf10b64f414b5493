// Package schedule abstracts one-shot timers so that time driven components
// (the inactivity timer, the poller) can run against a manual clock in tests.
package schedule

import (
	"sync"
	"time"
)

// Handle cancels a scheduled callback.
type Handle interface {
	// Cancel stops the callback from firing. It reports false if the callback
	// already fired or was cancelled before.
	Cancel() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Handle
	Now() time.Time
}

type realScheduler struct{}

// Real returns a Scheduler backed by time.AfterFunc.
func Real() Scheduler {
	return realScheduler{}
}

func (realScheduler) Schedule(delay time.Duration, fn func()) Handle {
	return timerHandle{timer: time.AfterFunc(delay, fn)}
}

func (realScheduler) Now() time.Time {
	return time.Now()
}

type timerHandle struct {
	timer *time.Timer
}

func (h timerHandle) Cancel() bool {
	return h.timer.Stop()
}

type periodic struct {
	scheduler Scheduler
	interval  time.Duration
	fn        func()

	mu      sync.Mutex
	next    Handle
	stopped bool
}

// Every runs fn every interval until the returned Handle is cancelled.
// The next tick is scheduled before fn runs, so a slow fn never delays
// the cadence and consecutive invocations may overlap.
func Every(s Scheduler, interval time.Duration, fn func()) Handle {
	p := &periodic{
		scheduler: s,
		interval:  interval,
		fn:        fn,
	}

	p.mu.Lock()
	p.next = s.Schedule(interval, p.tick)
	p.mu.Unlock()

	return p
}

func (p *periodic) tick() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.next = p.scheduler.Schedule(p.interval, p.tick)
	p.mu.Unlock()

	p.fn()
}

func (p *periodic) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false
	}
	p.stopped = true
	p.next.Cancel()

	return true
}
