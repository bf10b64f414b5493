package medreserve

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/pkg/apiclient"
)

type HealthService service

// Check queries the backend actuator.
func (s *HealthService) Check(ctx context.Context) (HealthStatus, error) {
	var st HealthStatus
	err := s.client.api.DoJSON(ctx, anonymousGet("/actuator/health"), &st)

	return st, err
}

// Test calls the backend's plain text test endpoint.
func (s *HealthService) Test(ctx context.Context) (string, error) {
	resp, err := s.client.api.Do(ctx, anonymousGet("/test"))
	if err != nil {
		return "", err
	}

	return string(resp.Body), nil
}

func anonymousGet(path string) *apiclient.Request {
	req := apiclient.NewRequest(http.MethodGet, path)
	req.Anonymous = true

	return req
}

type TipService service

func (s *TipService) List(ctx context.Context) ([]HealthTip, error) {
	var tips []HealthTip
	err := s.client.api.Get(ctx, "/health-tips", nil, &tips)

	return tips, err
}

func (s *TipService) ByCategory(ctx context.Context, category string) ([]HealthTip, error) {
	var tips []HealthTip
	err := s.client.api.Get(ctx, "/health-tips/category/"+url.PathEscape(category), nil, &tips)

	return tips, err
}

func (s *TipService) Get(ctx context.Context, id int64) (HealthTip, error) {
	var tip HealthTip
	err := s.client.api.Get(ctx, fmt.Sprintf("/health-tips/%d", id), nil, &tip)

	return tip, err
}

// Personalized returns tips for the signed in user, or all tips when the
// backend cannot personalise them.
func (s *TipService) Personalized(ctx context.Context) ([]HealthTip, error) {
	var tips []HealthTip
	if err := s.client.api.Get(ctx, "/health-tips/personalized", nil, &tips); err != nil {
		slogctx.Debug(ctx, "Personalized health tips unavailable, falling back to all tips", "error", err)
		return s.List(ctx)
	}

	return tips, nil
}
