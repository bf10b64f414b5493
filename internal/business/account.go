package business

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/medreserve/medreserve-client/internal/config"
	"github.com/medreserve/medreserve-client/internal/serviceerr"
	"github.com/medreserve/medreserve-client/pkg/apiclient"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
	"github.com/medreserve/medreserve-client/pkg/session"
)

// LoginMain signs in and stores the credentials in the session store.
func LoginMain(out io.Writer, in medreserve.LoginRequest) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		client, closeFn, err := initClient(ctx, cfg, out)
		if err != nil {
			return err
		}
		defer closeFn()

		user, err := client.Auth.Login(ctx, in)
		if err != nil {
			return userError(err)
		}

		_, _ = fmt.Fprintf(out, "Signed in as %s (%s)\n", displayName(user), user.Role)
		return nil
	}
}

// SignupMain registers a new account.
func SignupMain(out io.Writer, in medreserve.SignupRequest) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		client, closeFn, err := initClient(ctx, cfg, out)
		if err != nil {
			return err
		}
		defer closeFn()

		resp, err := client.Auth.Signup(ctx, in)
		if err != nil {
			return userError(err)
		}

		_, _ = fmt.Fprintln(out, resp.Message)
		return nil
	}
}

// LogoutMain signs out. Local credentials are removed even when the backend
// cannot be reached.
func LogoutMain(out io.Writer) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		client, closeFn, err := initClient(ctx, cfg, out)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := client.Auth.Logout(ctx); err != nil {
			return err
		}

		_, _ = fmt.Fprintln(out, "Signed out")
		return nil
	}
}

// StatusMain shows who is signed in and when the access token expires.
func StatusMain(out io.Writer, now func() time.Time) func(context.Context, *config.Config) error {
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context, cfg *config.Config) error {
		client, closeFn, err := initClient(ctx, cfg, out)
		if err != nil {
			return err
		}
		defer closeFn()

		sessions := client.Sessions()

		creds, err := sessions.Credentials(ctx)
		if err != nil {
			return err
		}

		if creds.Empty() {
			_, _ = fmt.Fprintln(out, "Not signed in")

			notice, err := sessions.TakeNotice(ctx)
			if err != nil {
				return err
			}
			if notice != "" {
				_, _ = fmt.Fprintln(out, notice)
			}

			return nil
		}

		_, _ = fmt.Fprintf(out, "Signed in as %s (%s)\n", displayName(creds.User), creds.User.Role)
		printTokenStatus(out, creds.AccessToken, now())

		return nil
	}
}

func printTokenStatus(out io.Writer, token string, now time.Time) {
	claims, err := session.ParseClaims(token)
	switch {
	case errors.Is(err, session.ErrOpaqueToken):
		_, _ = fmt.Fprintln(out, "Access token: opaque")
		return
	case err != nil:
		_, _ = fmt.Fprintf(out, "Access token: unreadable (%v)\n", err)
		return
	}

	switch {
	case claims.Expiry.IsZero():
		_, _ = fmt.Fprintf(out, "Access token for %s does not expire\n", claims.Subject)
	case claims.Expired(now):
		_, _ = fmt.Fprintf(out, "Access token for %s expired at %s, it is refreshed on the next request\n",
			claims.Subject, claims.Expiry.UTC().Format(time.RFC3339))
	default:
		_, _ = fmt.Fprintf(out, "Access token for %s expires in %s\n",
			claims.Subject, claims.Expiry.Sub(now).Round(time.Second))
	}
}

// ChangePasswordMain changes the password of the signed in user.
func ChangePasswordMain(out io.Writer, in medreserve.ChangePasswordRequest) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		client, closeFn, err := initClient(ctx, cfg, out)
		if err != nil {
			return err
		}
		defer closeFn()

		resp, err := client.Auth.ChangePassword(ctx, in)
		if err != nil {
			return userError(err)
		}

		_, _ = fmt.Fprintln(out, resp.Message)
		return nil
	}
}

// userError prefixes err with the message a user should see.
func userError(err error) error {
	if apiclient.IsSessionExpired(err) {
		return fmt.Errorf("%s Run `medreserve login` to continue: %w", serviceerr.Message(err), err)
	}

	return fmt.Errorf("%s: %w", serviceerr.Message(err), err)
}
