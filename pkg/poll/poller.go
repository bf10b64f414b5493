// Package poll re-runs a fetch on a fixed interval while its consumer is
// subscribed and visible.
package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/pkg/schedule"
)

const DefaultInterval = 60 * time.Second

// Callback is invoked on every visible tick. Its error is logged and
// dropped; the next tick runs regardless.
type Callback func(ctx context.Context) error

type Option func(*Poller)

// WithVisibility sets the predicate consulted on every tick. Ticks are
// skipped while it reports false.
func WithVisibility(visible func() bool) Option {
	return func(p *Poller) {
		if visible != nil {
			p.visible = visible
		}
	}
}

// Poller drives a single subscription. It is safe for concurrent use.
type Poller struct {
	scheduler schedule.Scheduler
	visible   func() bool

	mu         sync.Mutex
	active     bool
	generation uint64
	callback   Callback
	interval   time.Duration
	key        string
	task       schedule.Handle
	ctx        context.Context
	cancel     context.CancelFunc
}

func New(scheduler schedule.Scheduler, opts ...Option) *Poller {
	p := &Poller{
		scheduler: scheduler,
		visible:   func() bool { return true },
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Subscribe starts polling, or updates a running subscription. The callback
// is always replaced so ticks see the latest closure. The periodic task is
// only restarted when interval or key differ from the running ones; in that
// case ctx becomes the parent of the new task's callbacks.
func (p *Poller) Subscribe(ctx context.Context, callback Callback, interval time.Duration, key string) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.callback = callback
	if p.active && p.interval == interval && p.key == key {
		return
	}

	p.stop()

	p.active = true
	p.interval = interval
	p.key = key
	p.ctx, p.cancel = context.WithCancel(ctx)
	gen := p.generation
	p.task = schedule.Every(p.scheduler, interval, func() { p.tick(gen) })

	slogctx.Debug(ctx, "Poll subscription started", "interval", interval, "key", key)
}

// Unsubscribe stops the subscription. No tick starts a callback after it
// returns; callbacks already running see their context cancelled.
func (p *Poller) Unsubscribe() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stop()
}

func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.active
}

// stop must be called with mu held.
func (p *Poller) stop() {
	if p.task != nil {
		p.task.Cancel()
		p.task = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.generation++
	p.active = false
}

func (p *Poller) tick(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || !p.active {
		p.mu.Unlock()
		return
	}
	callback, ctx := p.callback, p.ctx
	p.mu.Unlock()

	if !p.visible() {
		slogctx.Debug(ctx, "Poll tick skipped while hidden")
		return
	}

	if err := invoke(ctx, callback); err != nil {
		slogctx.Warn(ctx, "Poll tick failed", "error", err)
	}
}

func invoke(ctx context.Context, callback Callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll callback panicked: %v", r)
		}
	}()

	return callback(ctx)
}
