package sessionmock

import (
	"context"
	"sync"

	"github.com/medreserve/medreserve-client/pkg/session"
)

type Repository struct {
	mu          sync.Mutex
	Credentials session.Credentials
	Notice      string

	loadErr, storeErr, deleteErr, noticeErr error
}

type Option func(*Repository)

func WithLoadError(err error) Option   { return func(r *Repository) { r.loadErr = err } }
func WithStoreError(err error) Option  { return func(r *Repository) { r.storeErr = err } }
func WithDeleteError(err error) Option { return func(r *Repository) { r.deleteErr = err } }
func WithNoticeError(err error) Option { return func(r *Repository) { r.noticeErr = err } }

func WithCredentials(c session.Credentials) Option {
	return func(r *Repository) { r.Credentials = c }
}

func NewInMemRepository(opts ...Option) *Repository {
	r := &Repository{}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Repository) LoadCredentials(ctx context.Context) (session.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadErr != nil {
		return session.Credentials{}, r.loadErr
	}

	return r.Credentials, nil
}

func (r *Repository) StoreCredentials(ctx context.Context, c session.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.storeErr != nil {
		return r.storeErr
	}
	r.Credentials = c

	return nil
}

func (r *Repository) StoreTokens(ctx context.Context, accessToken, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.storeErr != nil {
		return r.storeErr
	}
	r.Credentials.AccessToken = accessToken
	if refreshToken != "" {
		r.Credentials.RefreshToken = refreshToken
	}

	return nil
}

func (r *Repository) DeleteCredentials(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.Credentials = session.Credentials{}

	return nil
}

func (r *Repository) StoreNotice(ctx context.Context, notice string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.noticeErr != nil {
		return r.noticeErr
	}
	r.Notice = notice

	return nil
}

func (r *Repository) TakeNotice(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.noticeErr != nil {
		return "", r.noticeErr
	}
	notice := r.Notice
	r.Notice = ""

	return notice, nil
}

// Snapshot returns the stored credentials.
func (r *Repository) Snapshot() session.Credentials {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Credentials
}
