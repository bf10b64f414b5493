package business

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/internal/config"
	"github.com/medreserve/medreserve-client/internal/serviceerr"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
	sessionmemory "github.com/medreserve/medreserve-client/pkg/session/memory"
)

var ErrSmokeFailed = errors.New("smoke check failed")

const (
	smokePassword    = "StrongPwd1@"
	smokeNewPassword = "NewStrongPwd1@"
	smokeDownload    = "tiny_download.png"
)

// tinyPNG is the PNG signature, enough for server side type detection.
var tinyPNG = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// SmokeOptions control the smoke checks. Every check signs up a fresh
// patient and keeps its session in memory.
type SmokeOptions struct {
	Out io.Writer
	// SignupAttempts retries signup and login while the backend starts.
	SignupAttempts int
	RetryDelay     time.Duration
}

func (o SmokeOptions) withDefaults() SmokeOptions {
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.SignupAttempts < 1 {
		o.SignupAttempts = 1
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 5 * time.Second
	}

	return o
}

type smokeRun struct {
	opts   SmokeOptions
	name   string
	client *medreserve.Client
}

func newSmokeRun(ctx context.Context, cfg *config.Config, name string, opts SmokeOptions, apiOpts ...medreserve.Option) (*smokeRun, func(), error) {
	opts = opts.withDefaults()

	client, closeFn, err := initClient(ctx, cfg, opts.Out,
		withSessionRepository(sessionmemory.NewRepository()),
		withAPIOptions(apiOpts...),
	)
	if err != nil {
		return nil, nil, err
	}

	r := &smokeRun{opts: opts, name: name, client: client}
	r.logf("Using API base: %s", client.API().BaseURL())

	return r, closeFn, nil
}

func (r *smokeRun) logf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.opts.Out, "[%s] %s\n", r.name, fmt.Sprintf(format, args...))
}

func (r *smokeRun) fail(step string, err error) error {
	r.logf("%s failed: %s", step, serviceerr.Message(err))
	return fmt.Errorf("%w: %s: %w", ErrSmokeFailed, step, err)
}

// signupAndLogin registers a random patient and signs in.
func (r *smokeRun) signupAndLogin(ctx context.Context, prefix string) (medreserve.SignupRequest, error) {
	in := medreserve.SignupRequest{
		FirstName:   "Smoke",
		LastName:    "Test",
		Email:       fmt.Sprintf("%s_%s@example.com", prefix, uuid.NewString()[:8]),
		Password:    smokePassword,
		PhoneNumber: randomPhone(),
		Role:        "PATIENT",
	}

	var lastErr error
	for attempt := 1; attempt <= r.opts.SignupAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return in, ctx.Err()
			case <-time.After(r.opts.RetryDelay):
			}
		}

		if _, err := r.client.Auth.Signup(ctx, in); err != nil {
			lastErr = err
			r.logf("Signup attempt %d failed: %s", attempt, serviceerr.Message(err))
			continue
		}
		if _, err := r.client.Auth.Login(ctx, medreserve.LoginRequest{Email: in.Email, Password: in.Password}); err != nil {
			lastErr = err
			r.logf("Login attempt %d failed: %s", attempt, serviceerr.Message(err))
			continue
		}

		r.logf("Signed up and logged in as %s", in.Email)
		return in, nil
	}

	return in, r.fail("signup and login", lastErr)
}

// SmokeAuthMain checks signup, login, the profile endpoint and a password
// change followed by a login with the new password.
func SmokeAuthMain(opts SmokeOptions) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		r, closeFn, err := newSmokeRun(ctx, cfg, "smoke", opts)
		if err != nil {
			return err
		}
		defer closeFn()

		user, err := r.signupAndLogin(ctx, "smoke")
		if err != nil {
			return err
		}

		me, err := r.client.Auth.Me(ctx)
		if err != nil {
			return r.fail("/auth/me", err)
		}
		if me.Email == "" {
			return r.fail("/auth/me", errors.New("profile has no email"))
		}
		r.logf("/auth/me ok for %s", me.Email)

		_, err = r.client.Auth.ChangePassword(ctx, medreserve.ChangePasswordRequest{
			CurrentPassword: user.Password,
			NewPassword:     smokeNewPassword,
		})
		if err != nil {
			return r.fail("change password", err)
		}
		r.logf("Change password ok")

		_, err = r.client.Auth.Login(ctx, medreserve.LoginRequest{Email: user.Email, Password: smokeNewPassword})
		if err != nil {
			return r.fail("re-login with new password", err)
		}
		r.logf("Re-login with new password ok")

		r.logf("All good")
		return nil
	}
}

// SmokeDownloadHeadersMain uploads a tiny report and checks that its
// download is an uncached attachment keeping the original filename.
func SmokeDownloadHeadersMain(opts SmokeOptions) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		r, closeFn, err := newSmokeRun(ctx, cfg, "dl", opts)
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := r.signupAndLogin(ctx, "dl"); err != nil {
			return err
		}

		report, err := r.client.Reports.Upload(ctx, medreserve.ReportUpload{
			Filename:    smokeDownload,
			ContentType: "image/png",
			Data:        tinyPNG,
			Meta: medreserve.ReportMeta{
				Title:       "Download Header Test",
				Description: "Verifying headers",
				ReportType:  "OTHER",
			},
		})
		if err != nil {
			return r.fail("upload", err)
		}
		if report.ID == 0 {
			return r.fail("upload", errors.New("response has no report id"))
		}
		r.logf("Uploaded report id: %d", report.ID)

		file, err := r.client.Reports.Download(ctx, report.ID)
		if err != nil {
			return r.fail("download", err)
		}

		checks := []error{medreserve.VerifyDownloadHeaders(file.Header, smokeDownload)}
		if len(file.Data) == 0 {
			checks = append(checks, errors.New("empty body in download"))
		}
		if err := errors.Join(checks...); err != nil {
			return r.fail("header validation", err)
		}

		r.logf("PASSED: Download headers and filename validated.")
		return nil
	}
}

// SmokeUploadRateMain uploads past the configured per-minute quota with the
// client side limiter disabled and expects the backend to answer 429.
func SmokeUploadRateMain(opts SmokeOptions) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		limit := cfg.API.UploadsPerMinute
		if limit <= 0 {
			limit = medreserve.DefaultUploadsPerMinute
		}
		attempts := limit + 2

		r, closeFn, err := newSmokeRun(ctx, cfg, "rate", opts, medreserve.WithUploadsPerMinute(0))
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := r.signupAndLogin(ctx, "rate"); err != nil {
			return err
		}

		var success, tooMany int
		for i := 1; i <= attempts; i++ {
			_, err := r.client.Reports.Upload(ctx, medreserve.ReportUpload{
				Filename:    fmt.Sprintf("tiny_%d.png", i),
				ContentType: "image/png",
				Data:        tinyPNG,
				Meta: medreserve.ReportMeta{
					Title:       fmt.Sprintf("E2E Report %d", i),
					Description: "Automated test upload",
					ReportType:  "OTHER",
				},
			})
			switch {
			case err == nil:
				success++
				r.logf("Upload %d OK", i)
			case errors.Is(err, serviceerr.ErrRateLimited):
				tooMany++
				r.logf("Upload %d hit rate limit (429)", i)
			default:
				return r.fail(fmt.Sprintf("upload %d", i), err)
			}
		}

		slogctx.Info(ctx, "Upload rate smoke check finished", "success", success, "rate_limited", tooMany)
		if tooMany == 0 {
			r.logf("FAILED: Did not hit rate limit. Success=%d", success)
			return fmt.Errorf("%w: no 429 after %d uploads", ErrSmokeFailed, attempts)
		}

		r.logf("PASSED: Hit rate limit as expected after ~%d uploads. Success=%d, 429s=%d", limit, success, tooMany)
		return nil
	}
}

// randomPhone returns a +91 mobile number starting with 9.
func randomPhone() string {
	return fmt.Sprintf("+91%d", 9_000_000_000+rand.Int64N(1_000_000_000))
}
