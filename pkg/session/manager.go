package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/internal/serviceerr"
)

var ErrNoAccessToken = errors.New("access token must not be empty")

// Navigator is told to send the user back to the login entry point.
type Navigator interface {
	ToLogin(ctx context.Context, notice string)
}

// NavigatorFunc adapts a function to a Navigator.
type NavigatorFunc func(ctx context.Context, notice string)

func (f NavigatorFunc) ToLogin(ctx context.Context, notice string) { f(ctx, notice) }

type nopNavigator struct{}

func (nopNavigator) ToLogin(context.Context, string) {}

type ManagerOption func(*Manager)

func WithNavigator(n Navigator) ManagerOption {
	return func(m *Manager) {
		m.navigator = n
	}
}

// Manager owns the session credentials. It is the only writer of the
// repository, so token rotation and expiry are serialised here.
type Manager struct {
	sessions  Repository
	navigator Navigator

	mu sync.Mutex
}

func NewManager(sessions Repository, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:  sessions,
		navigator: nopNavigator{},
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Establish stores the credentials returned by a successful login.
func (m *Manager) Establish(ctx context.Context, c Credentials) error {
	if c.AccessToken == "" {
		return ErrNoAccessToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sessions.StoreCredentials(ctx, c); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}

	slogctx.Debug(ctx, "Session established", "email", c.User.Email)

	return nil
}

func (m *Manager) Credentials(ctx context.Context) (Credentials, error) {
	c, err := m.sessions.LoadCredentials(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("loading credentials: %w", err)
	}

	return c, nil
}

// AccessToken reads the current access token. Callers must not cache it
// since a refresh may rotate it at any time.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	c, err := m.Credentials(ctx)
	if err != nil {
		return "", err
	}

	return c.AccessToken, nil
}

func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	c, err := m.Credentials(ctx)
	if err != nil {
		return "", err
	}

	return c.RefreshToken, nil
}

func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	token, err := m.AccessToken(ctx)
	return err == nil && token != ""
}

// Rotate persists the tokens returned by a refresh. An empty refreshToken
// keeps the stored one.
func (m *Manager) Rotate(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return ErrNoAccessToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sessions.StoreTokens(ctx, accessToken, refreshToken); err != nil {
		return fmt.Errorf("storing rotated tokens: %w", err)
	}

	return nil
}

// Clear removes the credentials without notifying the navigator. It is
// used for an explicit logout.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sessions.DeleteCredentials(ctx); err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}

	return nil
}

// Expire clears the credentials, persists notice for the login screen and
// sends the user there. The navigator is told even if storage fails.
func (m *Manager) Expire(ctx context.Context, notice string) error {
	m.mu.Lock()
	var errs []error
	if err := m.sessions.DeleteCredentials(ctx); err != nil {
		errs = append(errs, fmt.Errorf("deleting credentials: %w", err))
	}
	if err := m.sessions.StoreNotice(ctx, notice); err != nil {
		errs = append(errs, fmt.Errorf("storing notice: %w", err))
	}
	m.mu.Unlock()

	slogctx.Info(ctx, "Session expired", "notice", notice)
	m.navigator.ToLogin(ctx, notice)

	return errors.Join(errs...)
}

// ExpireForInactivity is the logout side effect of the inactivity timer.
func (m *Manager) ExpireForInactivity(ctx context.Context) error {
	return m.Expire(ctx, serviceerr.MsgInactivityLogout)
}

// TakeNotice returns the pending notice once.
func (m *Manager) TakeNotice(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	notice, err := m.sessions.TakeNotice(ctx)
	if err != nil {
		return "", fmt.Errorf("taking notice: %w", err)
	}

	return notice, nil
}
