package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var ErrOpaqueToken = errors.New("token is not a JWT")

var tokenSigAlgs = []jose.SignatureAlgorithm{
	jose.HS256, jose.HS384, jose.HS512,
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
}

// Claims are the fields of an access token the client cares about.
type Claims struct {
	Subject string
	Role    string
	Expiry  time.Time
}

// Expired reports whether the token has expired at now. Tokens without an
// expiry never expire.
func (c Claims) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// ParseClaims reads the claims of token without verifying its signature.
// The backend is the only party that verifies tokens; the client uses the
// claims for display and diagnostics.
func ParseClaims(token string) (Claims, error) {
	parsed, err := jwt.ParseSigned(token, tokenSigAlgs)
	if err != nil {
		return Claims{}, errors.Join(ErrOpaqueToken, err)
	}

	var std jwt.Claims
	var extra struct {
		Role string `json:"role"`
	}
	if err := parsed.UnsafeClaimsWithoutVerification(&std, &extra); err != nil {
		return Claims{}, fmt.Errorf("reading token claims: %w", err)
	}

	c := Claims{
		Subject: std.Subject,
		Role:    extra.Role,
	}
	if std.Expiry != nil {
		c.Expiry = std.Expiry.Time()
	}

	return c, nil
}
