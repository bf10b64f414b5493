package medreserve

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/medreserve/medreserve-client/internal/serviceerr"
)

const (
	MsgInvalidInput   = "Invalid input data"
	MsgPhoneIndia     = "Please provide a valid Indian phone number in +91 format (10 digits, starts with 6-9)"
	MsgPasswordStrong = "Password must be 8+ chars with uppercase, lowercase, digit, and one of @$!%*?&."

	passwordSpecials = "@$!%*?&"
)

var (
	indianPhone     = regexp.MustCompile(`^\+91[6-9]\d{9}$`)
	passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,}$`)
)

// IsIndianPhone reports whether s is a +91 mobile number.
func IsIndianPhone(s string) bool {
	return indianPhone.MatchString(strings.TrimSpace(s))
}

// IsStrongPassword reports whether s has 8+ characters from the allowed set
// with at least one lowercase letter, uppercase letter, digit and special.
func IsStrongPassword(s string) bool {
	if !passwordCharset.MatchString(s) {
		return false
	}

	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	return lower && upper && digit && special
}

var payloadValidator = sync.OnceValues(func() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("indianphone", func(fl validator.FieldLevel) bool {
		return IsIndianPhone(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("registering indianphone validator: %w", err)
	}
	if err := v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("registering strongpassword validator: %w", err)
	}

	return v, nil
})

// Validate checks a request payload before it is sent. Failures are
// returned as *serviceerr.ValidationError keyed by JSON field name.
func Validate(payload any) error {
	v, err := payloadValidator()
	if err != nil {
		return err
	}

	err = v.Struct(payload)

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}

	return &serviceerr.ValidationError{Message: MsgInvalidInput, Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please provide a valid email address"
	case "indianphone":
		return MsgPhoneIndia
	case "strongpassword":
		return MsgPasswordStrong
	case "nefield":
		return "New password must differ from the current password"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must use the format yyyy-MM-dd HH:mm", fe.Field())
	case "min":
		return fmt.Sprintf("%s must not be empty", fe.Field())
	case "gt", "gte":
		return fmt.Sprintf("%s must be a positive number", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return strings.ToLower(fld.Name[:1]) + fld.Name[1:]
	}

	return name
}
