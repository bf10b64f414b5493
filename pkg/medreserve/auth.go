package medreserve

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/pkg/apiclient"
	"github.com/medreserve/medreserve-client/pkg/session"
)

var ErrInvalidLoginResponse = errors.New("login response carries no access token")

type AuthService service

// Login authenticates with email and password and establishes the session.
func (s *AuthService) Login(ctx context.Context, in LoginRequest) (session.UserSummary, error) {
	if err := Validate(in); err != nil {
		return session.UserSummary{}, err
	}

	req := apiclient.NewRequest(http.MethodPost, "/auth/login")
	req.Anonymous = true
	if err := req.SetJSON(in); err != nil {
		return session.UserSummary{}, err
	}

	var resp LoginResponse
	if err := s.client.api.DoJSON(ctx, req, &resp); err != nil {
		return session.UserSummary{}, err
	}
	if resp.AccessToken == "" {
		return session.UserSummary{}, ErrInvalidLoginResponse
	}

	user := resp.profile()
	if err := s.client.Sessions().Establish(ctx, session.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         user,
	}); err != nil {
		return session.UserSummary{}, err
	}

	slogctx.Info(ctx, "Signed in", "email", user.Email, "role", user.Role)

	return user, nil
}

// Signup registers a new account. It does not sign in.
func (s *AuthService) Signup(ctx context.Context, in SignupRequest) (MessageResponse, error) {
	if err := Validate(in); err != nil {
		return MessageResponse{}, err
	}

	req := apiclient.NewRequest(http.MethodPost, "/auth/signup")
	req.Anonymous = true
	if err := req.SetJSON(in); err != nil {
		return MessageResponse{}, err
	}

	var resp MessageResponse
	if err := s.client.api.DoJSON(ctx, req, &resp); err != nil {
		return MessageResponse{}, err
	}

	return resp, nil
}

// Logout signs out on the backend and clears the local session. The session
// is cleared even when the backend call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.client.api.Post(ctx, "/auth/signout", nil, nil); err != nil {
		slogctx.Warn(ctx, "Sign out call failed, clearing the local session anyway", "error", err)
	}

	if err := s.client.Sessions().Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	return nil
}

// Me returns the profile of the signed in user.
func (s *AuthService) Me(ctx context.Context) (session.UserSummary, error) {
	var user session.UserSummary
	if err := s.client.api.Get(ctx, "/auth/me", nil, &user); err != nil {
		return session.UserSummary{}, err
	}

	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, in ChangePasswordRequest) (MessageResponse, error) {
	if err := Validate(in); err != nil {
		return MessageResponse{}, err
	}

	var resp MessageResponse
	if err := s.client.api.Post(ctx, "/auth/change-password", in, &resp); err != nil {
		return MessageResponse{}, err
	}

	return resp, nil
}
