// Package sessionmemory keeps session credentials in process memory.
package sessionmemory

import (
	"context"

	"github.com/patrickmn/go-cache"

	"github.com/medreserve/medreserve-client/pkg/session"
)

type Repository struct {
	cache *cache.Cache
}

var _ session.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *Repository) LoadCredentials(ctx context.Context) (session.Credentials, error) {
	return session.Credentials{
		AccessToken:  r.getString(session.KeyAccessToken),
		RefreshToken: r.getString(session.KeyRefreshToken),
		User:         r.getUser(),
	}, nil
}

func (r *Repository) StoreCredentials(ctx context.Context, c session.Credentials) error {
	r.cache.SetDefault(session.KeyAccessToken, c.AccessToken)
	r.cache.SetDefault(session.KeyRefreshToken, c.RefreshToken)
	r.cache.SetDefault(session.KeyUser, c.User)

	return nil
}

func (r *Repository) StoreTokens(ctx context.Context, accessToken, refreshToken string) error {
	r.cache.SetDefault(session.KeyAccessToken, accessToken)
	if refreshToken != "" {
		r.cache.SetDefault(session.KeyRefreshToken, refreshToken)
	}

	return nil
}

func (r *Repository) DeleteCredentials(ctx context.Context) error {
	r.cache.Delete(session.KeyAccessToken)
	r.cache.Delete(session.KeyRefreshToken)
	r.cache.Delete(session.KeyUser)

	return nil
}

func (r *Repository) StoreNotice(ctx context.Context, notice string) error {
	r.cache.SetDefault(session.KeyNotice, notice)
	return nil
}

func (r *Repository) TakeNotice(ctx context.Context) (string, error) {
	notice := r.getString(session.KeyNotice)
	r.cache.Delete(session.KeyNotice)

	return notice, nil
}

func (r *Repository) getString(key string) string {
	v, ok := r.cache.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)

	return s
}

func (r *Repository) getUser() session.UserSummary {
	v, ok := r.cache.Get(session.KeyUser)
	if !ok {
		return session.UserSummary{}
	}
	u, _ := v.(session.UserSummary)

	return u
}
