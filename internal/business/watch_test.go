package business

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medreserve/medreserve-client/internal/serviceerr"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
	"github.com/medreserve/medreserve-client/pkg/schedule/schedulefake"
)

// lockedBuffer lets the test read output written by the watch goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

var booked = medreserve.Appointment{ID: 11, AppointmentDateTime: "2026-05-01 10:30", Status: "SCHEDULED"}

type watchRun struct {
	out       *lockedBuffer
	scheduler *schedulefake.Scheduler
	done      chan error
}

func startWatch(t *testing.T, b *backend, in io.Reader) *watchRun {
	t.Helper()

	w := &watchRun{
		out:       &lockedBuffer{},
		scheduler: schedulefake.New(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		done:      make(chan error, 1),
	}

	go func() {
		w.done <- WatchMain(WatchOptions{In: in, Out: w.out, Scheduler: w.scheduler})(t.Context(), testConfig(b.URL))
	}()

	// Warning and logout timers plus the poll task.
	require.Eventually(t, func() bool { return w.scheduler.Pending() >= 3 }, 5*time.Second, 10*time.Millisecond)

	return w
}

func (w *watchRun) wait(t *testing.T) error {
	t.Helper()

	select {
	case err := <-w.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
		return nil
	}
}

func TestWatchMain_NotSignedIn(t *testing.T) {
	b := newBackend(t)
	useSharedRepository(t)

	err := WatchMain(WatchOptions{Scheduler: schedulefake.New(time.Now())})(t.Context(), testConfig(b.URL))
	require.ErrorIs(t, err, ErrNotSignedIn)
}

func TestWatchMain_ReportsChanges(t *testing.T) {
	b := newBackend(t)
	repo := useSharedRepository(t)
	b.signIn(t, repo)
	b.setAppointments(booked)

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	w := startWatch(t, b, pr)
	assert.Contains(t, w.out.String(), "Watching 1 appointments")

	confirmed := booked
	confirmed.Status = "CONFIRMED"
	b.setAppointments(confirmed, medreserve.Appointment{ID: 12, AppointmentDateTime: "2026-05-02 11:00", Status: "SCHEDULED"})

	w.scheduler.Advance(time.Minute)
	assert.Contains(t, w.out.String(), "Appointment 11 at 2026-05-01 10:30 is now CONFIRMED")
	assert.Contains(t, w.out.String(), "New appointment 12 at 2026-05-02 11:00 (SCHEDULED)")

	_, err := io.WriteString(pw, "quit\n")
	require.NoError(t, err)
	require.NoError(t, w.wait(t))

	creds, err := repo.LoadCredentials(t.Context())
	require.NoError(t, err)
	assert.False(t, creds.Empty())
}

func TestWatchMain_InactivityLogout(t *testing.T) {
	b := newBackend(t)
	repo := useSharedRepository(t)
	b.signIn(t, repo)

	w := startWatch(t, b, nil)

	w.scheduler.Advance(4 * time.Minute)
	assert.Contains(t, w.out.String(), "You will be signed out in 60 seconds due to inactivity")

	w.scheduler.Advance(time.Minute)
	require.NoError(t, w.wait(t))

	out := w.out.String()
	assert.Contains(t, out, "Signing out in 1 seconds")
	assert.Contains(t, out, serviceerr.MsgInactivityLogout)

	creds, err := repo.LoadCredentials(t.Context())
	require.NoError(t, err)
	assert.True(t, creds.Empty())

	notice, err := repo.TakeNotice(t.Context())
	require.NoError(t, err)
	assert.Equal(t, serviceerr.MsgInactivityLogout, notice)
}

func TestWatchMain_StaySignedIn(t *testing.T) {
	b := newBackend(t)
	repo := useSharedRepository(t)
	b.signIn(t, repo)

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	w := startWatch(t, b, pr)

	w.scheduler.Advance(4*time.Minute + 30*time.Second)
	require.Contains(t, w.out.String(), "due to inactivity")

	_, err := io.WriteString(pw, "\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(w.out.String(), "Staying signed in")
	}, 5*time.Second, 10*time.Millisecond)

	// Past the original deadline, still inside the renewed one.
	w.scheduler.Advance(2 * time.Minute)
	assert.NotContains(t, w.out.String(), serviceerr.MsgInactivityLogout)

	_, err = io.WriteString(pw, "quit\n")
	require.NoError(t, err)
	require.NoError(t, w.wait(t))

	creds, err := repo.LoadCredentials(t.Context())
	require.NoError(t, err)
	assert.False(t, creds.Empty())
}

func TestWatchMain_SessionExpiresWhilePolling(t *testing.T) {
	b := newBackend(t)
	repo := useSharedRepository(t)
	creds := b.signIn(t, repo)
	b.setAppointments(booked)

	w := startWatch(t, b, nil)
	assert.Contains(t, w.out.String(), "Watching 1 appointments")

	// The refresh endpoint rejects every token, so the next poll ends the session.
	b.revoke(creds.AccessToken)
	w.scheduler.Advance(time.Minute)

	err := w.wait(t)
	require.ErrorIs(t, err, serviceerr.ErrSessionExpired)
	assert.ErrorContains(t, err, "Run `medreserve login` to continue")
	assert.Contains(t, w.out.String(), serviceerr.MsgSessionExpired)
	assert.NotContains(t, w.out.String(), serviceerr.MsgInactivityLogout)

	creds, err = repo.LoadCredentials(t.Context())
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}
