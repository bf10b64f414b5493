package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medreserve/medreserve-client/internal/serviceerr"
)

var lockoutMarkers = []string{"too many failed login attempts", "locked"}

type errorBody struct {
	Message          string            `json:"message"`
	Error            string            `json:"error"`
	ValidationErrors map[string]string `json:"validationErrors"`
}

func parseErrorBody(body []byte) errorBody {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	return eb
}

// classifyResponse maps a non 2xx response onto the error taxonomy.
func classifyResponse(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body := parseErrorBody(resp.Body)
	msg := body.Message

	switch {
	case resp.StatusCode == http.StatusLocked || isLockout(msg):
		return &serviceerr.LockedError{Message: msg}
	case resp.StatusCode == http.StatusUnauthorized:
		return &serviceerr.AuthenticationError{Message: msg}
	case resp.StatusCode == http.StatusForbidden:
		return &serviceerr.AuthorizationError{Detail: forbiddenDetail(msg, resp.Body)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &serviceerr.RateLimitError{Message: msg, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case len(body.ValidationErrors) > 0:
		return &serviceerr.ValidationError{Message: msg, Fields: body.ValidationErrors}
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return &serviceerr.ValidationError{Message: msg}
	}

	if msg == "" {
		msg = body.Error
	}

	return &serviceerr.APIError{StatusCode: resp.StatusCode, Message: msg}
}

// classifyTransportError maps a failure to receive a response. Cancellation
// by the caller is returned unchanged.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())

	return &serviceerr.ConnectionError{Timeout: timeout, Err: err}
}

func forbiddenDetail(msg string, raw []byte) string {
	if msg != "" {
		return msg
	}
	if detail := strings.TrimSpace(string(raw)); detail != "" {
		return detail
	}

	return serviceerr.MsgForbidden
}

func isLockout(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range lockoutMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}

	return 0
}
