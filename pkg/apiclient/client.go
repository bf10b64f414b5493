// Package apiclient is the HTTP client core for the MedReserve backend.
//
// Every request goes through a middleware pipeline built once in New:
// request ID, tracing, metrics, logging and bearer authentication. A 401 on a
// first attempt triggers a single coordinated token refresh shared by all
// concurrent callers; the request is then replayed once. A failed refresh
// expires the session.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/medreserve/medreserve-client/internal/serviceerr"
	"github.com/medreserve/medreserve-client/pkg/session"
)

const DefaultTimeout = 30 * time.Second

var ErrInvalidBaseURL = errors.New("base URL must be an absolute http(s) URL")

type options struct {
	timeout        time.Duration
	transport      http.RoundTripper
	middleware     []Middleware
	attrs          []attribute.KeyValue
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

type Option func(*options)

// WithTimeout bounds each attempt, including the refresh call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTransport replaces the base transport under the pipeline.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithMiddleware appends middleware after the built-in ones.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mws...)
	}
}

// WithTelemetryAttributes adds attributes to every span and meter.
func WithTelemetryAttributes(attrs ...attribute.KeyValue) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	sessions  *session.Manager
	refresher *refresher
}

func New(baseURL string, sessions *session.Manager, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	o := &options{
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}

	tel, err := newTelemetry(o.meterProvider, o.tracerProvider, o.attrs)
	if err != nil {
		return nil, err
	}

	mws := append([]Middleware{
		requestIDMiddleware(),
		tel.tracingMiddleware(),
		tel.metricsMiddleware(),
		loggingMiddleware(),
		bearerMiddleware(sessions),
	}, o.middleware...)

	return &Client{
		baseURL: u,
		http: &http.Client{
			Transport: chain(o.transport, mws...),
			Timeout:   o.timeout,
		},
		sessions: sessions,
		refresher: newRefresher(
			&http.Client{Transport: o.transport, Timeout: o.timeout},
			u.JoinPath(refreshPath),
			sessions,
			tel,
		),
	}, nil
}

func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

func (c *Client) Sessions() *session.Manager {
	return c.sessions
}

// Do sends req and returns the 2xx response, or an error from the
// serviceerr taxonomy.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	resp, usedToken, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.retried && !req.Anonymous {
		if _, err := c.refresher.accessToken(ctx, usedToken); err != nil {
			return nil, err
		}

		return c.Do(ctx, req.retry())
	}

	if err := classifyResponse(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// DoJSON sends req and decodes a non-empty response body into out.
func (c *Client) DoJSON(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}

	return resp.DecodeJSON(out)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	req := NewRequest(http.MethodGet, path)
	if query != nil {
		req.Query = query
	}

	return c.DoJSON(ctx, req, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, NewRequest(http.MethodDelete, path), out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	req := NewRequest(method, path)
	if in != nil {
		if err := req.SetJSON(in); err != nil {
			return err
		}
	}

	return c.DoJSON(ctx, req, out)
}

// send performs one attempt and reports the token it carried.
func (c *Client) send(ctx context.Context, req *Request) (*Response, string, error) {
	a := &attempt{anonymous: req.Anonymous}

	httpReq, err := req.build(withAttempt(ctx, a), c.baseURL)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, a.token, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, a.token, classifyTransportError(ctx, err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, a.token, nil
}

// IsSessionExpired reports whether err means the user has to sign in again.
func IsSessionExpired(err error) bool {
	return errors.Is(err, serviceerr.ErrSessionExpired)
}
