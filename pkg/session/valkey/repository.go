package sessionvalkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/medreserve/medreserve-client/internal/serviceerr"
	"github.com/medreserve/medreserve-client/pkg/session"
)

const objectTypeSession = "session"

// Repository stores the session under <prefix>:session:<key>, one key per
// persisted value, so several client processes can share a session.
type Repository struct {
	store *store
}

var _ session.Repository = (*Repository)(nil)

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: newStore(valkeyClient, prefix),
	}
}

func (r *Repository) LoadCredentials(ctx context.Context) (c session.Credentials, _ error) {
	if err := r.getOptional(ctx, session.KeyAccessToken, &c.AccessToken); err != nil {
		return session.Credentials{}, fmt.Errorf("getting access token from store: %w", err)
	}
	if err := r.getOptional(ctx, session.KeyRefreshToken, &c.RefreshToken); err != nil {
		return session.Credentials{}, fmt.Errorf("getting refresh token from store: %w", err)
	}
	if err := r.getOptional(ctx, session.KeyUser, &c.User); err != nil {
		return session.Credentials{}, fmt.Errorf("getting user from store: %w", err)
	}

	return c, nil
}

func (r *Repository) StoreCredentials(ctx context.Context, c session.Credentials) error {
	values := map[string]any{
		session.KeyAccessToken:  c.AccessToken,
		session.KeyRefreshToken: c.RefreshToken,
		session.KeyUser:         c.User,
	}
	if err := r.store.SetMany(ctx, objectTypeSession, values); err != nil {
		return fmt.Errorf("setting credentials into storage: %w", err)
	}

	return nil
}

func (r *Repository) StoreTokens(ctx context.Context, accessToken, refreshToken string) error {
	values := map[string]any{session.KeyAccessToken: accessToken}
	if refreshToken != "" {
		values[session.KeyRefreshToken] = refreshToken
	}

	if err := r.store.SetMany(ctx, objectTypeSession, values); err != nil {
		return fmt.Errorf("setting tokens into storage: %w", err)
	}

	return nil
}

func (r *Repository) DeleteCredentials(ctx context.Context) error {
	err := r.store.Destroy(ctx, objectTypeSession, session.KeyAccessToken, session.KeyRefreshToken, session.KeyUser)
	if err != nil {
		return fmt.Errorf("deleting credentials from store: %w", err)
	}

	return nil
}

func (r *Repository) StoreNotice(ctx context.Context, notice string) error {
	if err := r.store.Set(ctx, objectTypeSession, session.KeyNotice, notice); err != nil {
		return fmt.Errorf("setting notice into storage: %w", err)
	}

	return nil
}

func (r *Repository) TakeNotice(ctx context.Context) (notice string, _ error) {
	err := r.store.Take(ctx, objectTypeSession, session.KeyNotice, &notice)
	if errors.Is(err, serviceerr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("taking notice from store: %w", err)
	}

	return notice, nil
}

func (r *Repository) getOptional(ctx context.Context, key string, into any) error {
	err := r.store.Get(ctx, objectTypeSession, key, into)
	if errors.Is(err, serviceerr.ErrNotFound) {
		return nil
	}

	return err
}
