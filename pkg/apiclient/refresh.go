package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/internal/serviceerr"
	"github.com/medreserve/medreserve-client/pkg/session"
)

const refreshPath = "/auth/refresh"

var (
	ErrNoRefreshToken         = errors.New("no refresh token stored")
	ErrInvalidRefreshResponse = errors.New("refresh response carries no access token")
	errSessionAlreadyCleared  = errors.New("session was already cleared")
)

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type outcome struct {
	token string
	err   error
}

// refresher collapses concurrent 401s into a single call to the refresh
// endpoint. Requests that arrive while a call is in flight wait for its
// outcome and are released in the order they arrived.
type refresher struct {
	http      *http.Client
	endpoint  *url.URL
	sessions  *session.Manager
	telemetry *telemetry

	mu       sync.Mutex
	inflight bool
	waiters  []chan outcome
}

func newRefresher(httpClient *http.Client, endpoint *url.URL, sessions *session.Manager, tel *telemetry) *refresher {
	return &refresher{
		http:      httpClient,
		endpoint:  endpoint,
		sessions:  sessions,
		telemetry: tel,
	}
}

// accessToken returns a token to replay a request that got a 401 while
// carrying usedToken. It starts a refresh only when none is in flight and
// the stored token is still the one that was rejected.
func (r *refresher) accessToken(ctx context.Context, usedToken string) (string, error) {
	r.mu.Lock()
	if r.inflight {
		ch := make(chan outcome, 1)
		r.waiters = append(r.waiters, ch)
		queued := len(r.waiters)
		r.mu.Unlock()

		slogctx.Debug(ctx, "Waiting for in-flight token refresh", "position", queued)
		select {
		case o := <-ch:
			return o.token, o.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	creds, err := r.sessions.Credentials(ctx)
	if err != nil {
		r.mu.Unlock()
		return "", fmt.Errorf("reading credentials for refresh: %w", err)
	}

	if creds.AccessToken != "" && creds.AccessToken != usedToken {
		r.mu.Unlock()
		slogctx.Debug(ctx, "Access token already rotated, replaying")
		return creds.AccessToken, nil
	}

	if creds.Empty() && usedToken != "" {
		r.mu.Unlock()
		return "", &serviceerr.SessionExpiredError{Err: errSessionAlreadyCleared}
	}

	r.inflight = true
	r.mu.Unlock()

	o := r.run(context.WithoutCancel(ctx), creds.RefreshToken)

	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.inflight = false
	r.mu.Unlock()

	for _, ch := range waiters {
		ch <- o
	}

	return o.token, o.err
}

func (r *refresher) run(ctx context.Context, refreshToken string) outcome {
	if refreshToken == "" {
		return r.fail(ctx, ErrNoRefreshToken)
	}

	resp, err := r.call(ctx, refreshToken)
	if err != nil {
		return r.fail(ctx, err)
	}

	if err := r.sessions.Rotate(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		return r.fail(ctx, err)
	}

	r.telemetry.refreshed(ctx, "success")
	slogctx.Info(ctx, "Access token refreshed", "refreshTokenRotated", resp.RefreshToken != "")

	return outcome{token: resp.AccessToken}
}

// call posts to the refresh endpoint through the bare transport, so that a
// 401 from the endpoint itself never re-enters the refresh flow.
func (r *refresher) call(ctx context.Context, refreshToken string) (refreshResponse, error) {
	u := *r.endpoint
	u.RawQuery = url.Values{"refreshToken": {refreshToken}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), http.NoBody)
	if err != nil {
		return refreshResponse{}, fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := r.http.Do(req)
	if err != nil {
		return refreshResponse{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return refreshResponse{}, fmt.Errorf("reading refresh response: %w", err)
	}

	if err := classifyResponse(&Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}); err != nil {
		return refreshResponse{}, fmt.Errorf("refresh endpoint rejected the token: %w", err)
	}

	var rr refreshResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return refreshResponse{}, fmt.Errorf("decoding refresh response: %w", err)
	}
	if rr.AccessToken == "" {
		return refreshResponse{}, ErrInvalidRefreshResponse
	}

	return rr, nil
}

func (r *refresher) fail(ctx context.Context, cause error) outcome {
	r.telemetry.refreshed(ctx, "failure")
	slogctx.Warn(ctx, "Token refresh failed, expiring session", "error", cause)

	if err := r.sessions.Expire(ctx, serviceerr.MsgSessionExpired); err != nil {
		slogctx.Error(ctx, "Failed to clear expired session", "error", err)
	}

	return outcome{err: &serviceerr.SessionExpiredError{Err: cause}}
}
