package business

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/internal/config"
	"github.com/medreserve/medreserve-client/pkg/apiclient"
	"github.com/medreserve/medreserve-client/pkg/inactivity"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
	"github.com/medreserve/medreserve-client/pkg/poll"
	"github.com/medreserve/medreserve-client/pkg/schedule"
	"github.com/medreserve/medreserve-client/pkg/session"
)

var ErrNotSignedIn = errors.New("not signed in")

var errSignedOut = errors.New("signed out")

const appointmentsPollKey = "appointments"

// WatchOptions control WatchMain.
type WatchOptions struct {
	// In delivers activity, one line per interaction. "quit" stops watching.
	In  io.Reader
	Out io.Writer
	// Scheduler drives the poll and inactivity timers, schedule.Real() when nil.
	Scheduler schedule.Scheduler
	// Visible reports whether updates are being looked at. Hidden poll ticks
	// are skipped.
	Visible func() bool
}

// WatchMain follows the signed in patient's appointments until the user
// quits, the session expires, or the user is inactive for too long.
func WatchMain(opts WatchOptions) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		out := &syncWriter{w: opts.Out}
		if opts.Out == nil {
			out.w = io.Discard
		}
		scheduler := opts.Scheduler
		if scheduler == nil {
			scheduler = schedule.Real()
		}

		navigator := session.NavigatorFunc(func(_ context.Context, notice string) {
			_, _ = fmt.Fprintln(out, notice)
		})

		client, closeFn, err := initClient(ctx, cfg, out, withNavigator(navigator))
		if err != nil {
			return err
		}
		defer closeFn()

		if !client.Sessions().IsAuthenticated(ctx) {
			return ErrNotSignedIn
		}

		timer := inactivity.New(scheduler,
			inactivity.WithRescheduleInterval(cfg.Inactivity.RescheduleInterval),
			inactivity.WithOnWarning(func(seconds int) {
				_, _ = fmt.Fprintf(out, "You will be signed out in %d seconds due to inactivity. Press Enter to stay signed in.\n", seconds)
			}),
			inactivity.WithOnTick(func(seconds int) {
				if seconds <= 5 || seconds%15 == 0 {
					_, _ = fmt.Fprintf(out, "Signing out in %d seconds\n", seconds)
				}
			}),
			inactivity.WithOnLogout(func() {
				if err := client.Sessions().ExpireForInactivity(context.WithoutCancel(ctx)); err != nil {
					slogctx.Error(ctx, "Failed to clear the session after inactivity", "error", err)
				}
				cancel(errSignedOut)
			}),
		)
		timer.Arm(inactivity.Config{Timeout: cfg.Inactivity.Timeout, WarningLead: cfg.Inactivity.WarningLead})
		defer timer.Disarm()

		watch := newAppointmentWatch(client, out)
		if err := watch.refresh(ctx); err != nil {
			return userError(err)
		}

		var pollOpts []poll.Option
		if opts.Visible != nil {
			pollOpts = append(pollOpts, poll.WithVisibility(opts.Visible))
		}
		poller := poll.New(scheduler, pollOpts...)
		poller.Subscribe(ctx, func(ctx context.Context) error {
			err := watch.refresh(ctx)
			if apiclient.IsSessionExpired(err) {
				cancel(err)
			}
			return err
		}, cfg.Poll.Interval, appointmentsPollKey)
		defer poller.Unsubscribe()

		slogctx.Info(ctx, "Watching appointments", "interval", cfg.Poll.Interval, "inactivity_timeout", cfg.Inactivity.Timeout)

		lines := readLines(ctx, opts.In)
		for {
			select {
			case <-ctx.Done():
				if err := context.Cause(ctx); apiclient.IsSessionExpired(err) {
					return userError(err)
				}
				return nil
			case line, ok := <-lines:
				if !ok {
					lines = nil
					continue
				}
				if strings.EqualFold(strings.TrimSpace(line), "quit") {
					return nil
				}
				if timer.State().WarningActive {
					timer.StaySignedIn()
					_, _ = fmt.Fprintln(out, "Staying signed in")
					continue
				}
				timer.RecordActivity()
			}
		}
	}
}

// appointmentWatch reports appointments that appear or change status.
type appointmentWatch struct {
	client *medreserve.Client
	out    io.Writer

	mu     sync.Mutex
	primed bool
	status map[int64]string
}

func newAppointmentWatch(client *medreserve.Client, out io.Writer) *appointmentWatch {
	return &appointmentWatch{client: client, out: out, status: map[int64]string{}}
}

func (w *appointmentWatch) refresh(ctx context.Context) error {
	page, err := w.client.Appointments.List(ctx, nil)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, a := range page.Content {
		prev, known := w.status[a.ID]
		w.status[a.ID] = a.Status

		switch {
		case !w.primed:
		case !known:
			_, _ = fmt.Fprintf(w.out, "New appointment %d at %s (%s)\n", a.ID, a.AppointmentDateTime, a.Status)
		case prev != a.Status:
			_, _ = fmt.Fprintf(w.out, "Appointment %d at %s is now %s\n", a.ID, a.AppointmentDateTime, a.Status)
		}
	}

	if !w.primed {
		w.primed = true
		_, _ = fmt.Fprintf(w.out, "Watching %d appointments\n", len(page.Content))
	}

	return nil
}

// readLines delivers the lines of r until EOF or until ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	if r == nil {
		close(lines)
		return lines
	}

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return lines
}

// syncWriter serialises writes from timer callbacks and the watch loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}
