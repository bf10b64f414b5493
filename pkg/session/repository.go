package session

import "context"

// Repository persists the session credentials and the pending user notice.
// Missing values load as zero values, not errors.
type Repository interface {
	LoadCredentials(ctx context.Context) (Credentials, error)
	StoreCredentials(ctx context.Context, c Credentials) error
	// StoreTokens replaces the access token, and the refresh token when
	// refreshToken is not empty.
	StoreTokens(ctx context.Context, accessToken, refreshToken string) error
	DeleteCredentials(ctx context.Context) error
	StoreNotice(ctx context.Context, notice string) error
	// TakeNotice returns the stored notice and deletes it.
	TakeNotice(ctx context.Context) (string, error)
}
