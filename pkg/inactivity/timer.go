// Package inactivity logs a user out after a period without activity,
// announcing the logout with a warning countdown first.
package inactivity

import (
	"math"
	"sync"
	"time"

	"github.com/medreserve/medreserve-client/pkg/schedule"
)

const (
	DefaultTimeout            = 5 * time.Minute
	DefaultWarningLead        = time.Minute
	DefaultRescheduleInterval = time.Second

	countdownStep = time.Second
)

// Config holds the deadlines of an armed timer. Zero values select the
// defaults.
type Config struct {
	Timeout     time.Duration
	WarningLead time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.WarningLead <= 0 {
		c.WarningLead = DefaultWarningLead
	}

	return c
}

// warningDelay is measured from the last activity.
func (c Config) warningDelay() time.Duration {
	return max(c.Timeout-c.WarningLead, 0)
}

func (c Config) countdownStart() int {
	return int(math.Ceil(c.WarningLead.Seconds()))
}

// State is a snapshot of the timer.
type State struct {
	Armed            bool
	LastActivityAt   time.Time
	WarningActive    bool
	SecondsRemaining int
}

type Option func(*Timer)

// WithOnWarning is called once when the warning window opens, with the
// number of seconds left before logout.
func WithOnWarning(fn func(secondsRemaining int)) Option {
	return func(t *Timer) {
		t.onWarning = fn
	}
}

// WithOnTick is called on every countdown step down to one second. The zero
// step is never reported: logout fires at that instant instead.
func WithOnTick(fn func(secondsRemaining int)) Option {
	return func(t *Timer) {
		t.onTick = fn
	}
}

// WithOnLogout is called when the logout deadline passes without activity.
func WithOnLogout(fn func()) Option {
	return func(t *Timer) {
		t.onLogout = fn
	}
}

// WithRescheduleInterval sets how often activity may move the deadlines.
// Activity in between is only recorded and picked up when a deadline fires.
func WithRescheduleInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d >= 0 {
			t.rescheduleInterval = d
		}
	}
}

// Timer is safe for concurrent use. Callbacks run outside its lock on the
// goroutine that fires the underlying schedule.
type Timer struct {
	scheduler          schedule.Scheduler
	rescheduleInterval time.Duration
	onWarning          func(int)
	onTick             func(int)
	onLogout           func()

	mu               sync.Mutex
	cfg              Config
	armed            bool
	generation       uint64
	lastActivity     time.Time
	scheduledFrom    time.Time
	warning          schedule.Handle
	logout           schedule.Handle
	countdown        schedule.Handle
	warningActive    bool
	secondsRemaining int
}

func New(scheduler schedule.Scheduler, opts ...Option) *Timer {
	t := &Timer{
		scheduler:          scheduler,
		rescheduleInterval: DefaultRescheduleInterval,
		onWarning:          func(int) {},
		onTick:             func(int) {},
		onLogout:           func() {},
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Arm starts the deadlines from now. Arming an armed timer restarts it with
// the new config.
func (t *Timer) Arm(cfg Config) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cfg = cfg.withDefaults()
	t.armed = true
	t.lastActivity = t.scheduler.Now()
	t.reschedule(t.lastActivity)
}

// RecordActivity moves both deadlines to start from now. It is cheap enough
// to call on every input event. Activity during the warning window always
// closes the window immediately.
func (t *Timer) RecordActivity() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return
	}

	now := t.scheduler.Now()
	t.lastActivity = now

	if t.warningActive || now.Sub(t.scheduledFrom) >= t.rescheduleInterval {
		t.reschedule(now)
	}
}

// StaySignedIn resets the deadlines unconditionally.
func (t *Timer) StaySignedIn() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return
	}

	t.lastActivity = t.scheduler.Now()
	t.reschedule(t.lastActivity)
}

// Disarm cancels every pending callback. Nothing fires after it returns.
func (t *Timer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stop()
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return State{
		Armed:            t.armed,
		LastActivityAt:   t.lastActivity,
		WarningActive:    t.warningActive,
		SecondsRemaining: t.secondsRemaining,
	}
}

// reschedule must be called with mu held.
func (t *Timer) reschedule(from time.Time) {
	t.cancelAll()

	t.scheduledFrom = from
	elapsed := t.scheduler.Now().Sub(from)
	gen := t.generation

	t.warning = t.scheduler.Schedule(t.cfg.warningDelay()-elapsed, func() { t.fireWarning(gen) })
	t.logout = t.scheduler.Schedule(t.cfg.Timeout-elapsed, func() { t.fireLogout(gen) })
}

// stop must be called with mu held.
func (t *Timer) stop() {
	t.cancelAll()
	t.armed = false
}

// cancelAll must be called with mu held. Bumping the generation discards
// callbacks that were already dequeued when their handle got cancelled.
func (t *Timer) cancelAll() {
	for _, h := range []schedule.Handle{t.warning, t.logout, t.countdown} {
		if h != nil {
			h.Cancel()
		}
	}
	t.warning, t.logout, t.countdown = nil, nil, nil
	t.generation++
	t.warningActive = false
	t.secondsRemaining = 0
}

// debounced reports whether activity happened after the deadlines were last
// computed. If so it moves them and the caller must not fire.
func (t *Timer) debounced() bool {
	if !t.lastActivity.After(t.scheduledFrom) {
		return false
	}
	t.reschedule(t.lastActivity)

	return true
}

func (t *Timer) fireWarning(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || !t.armed || t.debounced() {
		t.mu.Unlock()
		return
	}

	t.warning = nil
	t.warningActive = true
	t.secondsRemaining = t.cfg.countdownStart()
	if t.secondsRemaining > 0 {
		t.countdown = t.scheduler.Schedule(countdownStep, func() { t.fireTick(gen) })
	}
	seconds := t.secondsRemaining
	t.mu.Unlock()

	t.onWarning(seconds)
}

func (t *Timer) fireTick(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || !t.warningActive {
		t.mu.Unlock()
		return
	}

	if t.secondsRemaining <= 1 {
		t.secondsRemaining = 0
		t.countdown = nil
	} else {
		t.secondsRemaining--
		t.countdown = t.scheduler.Schedule(countdownStep, func() { t.fireTick(gen) })
	}
	seconds := t.secondsRemaining
	t.mu.Unlock()

	t.onTick(seconds)
}

func (t *Timer) fireLogout(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || !t.armed || t.debounced() {
		t.mu.Unlock()
		return
	}

	t.stop()
	t.mu.Unlock()

	t.onLogout()
}
