package serviceerr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")
var ErrAuthentication = errors.New("authentication failed")
var ErrAuthorization = errors.New("access denied")
var ErrConnection = errors.New("connection failed")
var ErrSessionExpired = errors.New("session expired")
var ErrValidation = errors.New("validation failed")
var ErrRateLimited = errors.New("rate limited")
var ErrLocked = errors.New("account locked")
var ErrAPI = errors.New("api error")

const (
	MsgSessionExpired    = "Your session expired. Please sign in again."
	MsgInactivityLogout  = "You were logged out due to inactivity. Please sign in again."
	MsgConnectionTimeout = "Connection timeout. The server may be starting up, please try again in a moment."
	MsgConnectionFailed  = "Connection error. Please check your network connection."
	MsgOperationFailed   = "Operation failed. Please try again."
	MsgForbidden         = "Forbidden"
)

// AuthenticationError is returned for a 401 that could not be recovered by a
// token refresh, typically because the request was already replayed once.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return ErrAuthentication.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAuthentication, e.Message)
}

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// AuthorizationError is returned for a 403. Detail carries the server message.
type AuthorizationError struct {
	Detail string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAuthorization, e.Detail)
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrAuthorization }

// ConnectionError is returned when no response was received.
type ConnectionError struct {
	Timeout bool
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Timeout {
		return MsgConnectionTimeout
	}
	return MsgConnectionFailed
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// SessionExpiredError is returned when a refresh failed or was impossible.
// The stored credentials are already cleared when a caller sees it.
type SessionExpiredError struct {
	Err error
}

func (e *SessionExpiredError) Error() string {
	return MsgSessionExpired
}

func (e *SessionExpiredError) Unwrap() error { return e.Err }

func (e *SessionExpiredError) Is(target error) bool { return target == ErrSessionExpired }

// ValidationError carries per field messages from a 4xx response or from
// client side validation.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message == "" {
			return ErrValidation.Error()
		}
		return e.Message
	}

	parts := make([]string, 0, len(e.Fields))
	for _, field := range sortedKeys(e.Fields) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}

	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// RateLimitError is returned for a 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return ErrRateLimited.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRateLimited, e.Message)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// LockedError is returned when the server refuses a login after too many
// failed attempts.
type LockedError struct {
	Message string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrLocked, e.Message)
}

func (e *LockedError) Is(target error) bool { return target == ErrLocked }

// APIError is any other non 2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", ErrAPI, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrAPI, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }
