package serviceerr

import (
	"errors"
	"slices"
	"strings"
)

// KnownFieldMessages maps business error messages returned by the backend to
// the form field they belong to.
var KnownFieldMessages = map[string]string{
	"email is already in use":        "email",
	"phone number is already in use": "phoneNumber",
}

// Message returns the message a user should see for err.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		authn   *AuthenticationError
		authz   *AuthorizationError
		valid   *ValidationError
		limited *RateLimitError
		locked  *LockedError
		api     *APIError
	)

	switch {
	case errors.Is(err, ErrConnection), errors.Is(err, ErrSessionExpired):
		return unwrapTyped(err).Error()
	case errors.As(err, &authz):
		return authz.Detail
	case errors.As(err, &authn) && authn.Message != "":
		return authn.Message
	case errors.As(err, &valid) && valid.Message != "":
		return valid.Message
	case errors.As(err, &limited) && limited.Message != "":
		return limited.Message
	case errors.As(err, &locked):
		return locked.Message
	case errors.As(err, &api) && api.Message != "":
		return api.Message
	}

	return MsgOperationFailed
}

// FieldErrors returns per field messages for err. Validation errors carry
// their own fields; other errors are matched against KnownFieldMessages.
func FieldErrors(err error) map[string]string {
	var valid *ValidationError
	if errors.As(err, &valid) && len(valid.Fields) > 0 {
		return valid.Fields
	}

	msg := strings.ToLower(Message(err))
	for known, field := range KnownFieldMessages {
		if strings.Contains(msg, known) {
			return map[string]string{field: Message(err)}
		}
	}

	return nil
}

func unwrapTyped(err error) error {
	var conn *ConnectionError
	if errors.As(err, &conn) {
		return conn
	}

	var expired *SessionExpiredError
	if errors.As(err, &expired) {
		return expired
	}

	return err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}
