package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	slogctx "github.com/veqryn/slog-context"
)

// Middleware decorates the transport used for every backend call.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to an http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// chain wraps base so that mws[0] sees the request first.
func chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}

	return rt
}

// TokenSource yields the access token at send time.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type attemptKey struct{}

// attempt records what a single send carried, so that a 401 can be matched
// against the token it was sent with.
type attempt struct {
	anonymous bool
	token     string
}

func withAttempt(ctx context.Context, a *attempt) context.Context {
	return context.WithValue(ctx, attemptKey{}, a)
}

func attemptFrom(ctx context.Context) *attempt {
	a, _ := ctx.Value(attemptKey{}).(*attempt)
	return a
}

// requestIDMiddleware tags every outgoing request and its log records with
// an X-Request-ID.
func requestIDMiddleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			id := req.Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}

			ctx := slogctx.With(req.Context(), commoncfg.AttrRequestID, id)
			req = req.Clone(ctx)
			req.Header.Set(headerRequestID, id)

			return next.RoundTrip(req)
		})
	}
}

func loggingMiddleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			start := time.Now()

			slogctx.Debug(ctx, "Sending request", "method", req.Method, "path", req.URL.Path)
			resp, err := next.RoundTrip(req)
			if err != nil {
				slogctx.Warn(ctx, "Request failed", "method", req.Method, "path", req.URL.Path, "error", err)
				return nil, err
			}

			slogctx.Debug(ctx, "Received response",
				"method", req.Method,
				"path", req.URL.Path,
				"status", resp.StatusCode,
				"duration", time.Since(start),
			)

			return resp, nil
		})
	}
}

// bearerMiddleware reads the access token on every send and attaches it
// when present.
func bearerMiddleware(tokens TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()

			a := attemptFrom(ctx)
			if a != nil && a.anonymous {
				return next.RoundTrip(req)
			}

			token, err := tokens.AccessToken(ctx)
			if err != nil {
				slogctx.Warn(ctx, "Failed to read access token, sending unauthenticated", "error", err)
				token = ""
			}

			if a != nil {
				a.token = token
			}

			if token == "" {
				slogctx.Debug(ctx, "Sending request without token", "path", req.URL.Path)
				return next.RoundTrip(req)
			}

			req = req.Clone(ctx)
			req.Header.Set("Authorization", "Bearer "+token)

			return next.RoundTrip(req)
		})
	}
}
