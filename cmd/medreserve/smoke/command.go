package smoke

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/medreserve/medreserve-client/internal/business"
	"github.com/medreserve/medreserve-client/internal/cmdutils"
	"github.com/medreserve/medreserve-client/internal/config"
)

// Cmd groups the end to end checks against a running backend.
func Cmd(buildInfo string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run end to end checks against a backend",
	}

	var opts business.SmokeOptions
	cmd.PersistentFlags().IntVar(&opts.SignupAttempts, "attempts", 1, "signup attempts while the backend starts")
	cmd.PersistentFlags().DurationVar(&opts.RetryDelay, "retry-delay", 5*time.Second, "delay between signup attempts")

	checks := []struct {
		use, short string
		main       func(business.SmokeOptions) func(context.Context, *config.Config) error
	}{
		{"auth", "Check signup, login, profile and password change", business.SmokeAuthMain},
		{"download-headers", "Check that report downloads are uncached attachments", business.SmokeDownloadHeadersMain},
		{"upload-rate", "Check that the backend limits report uploads", business.SmokeUploadRateMain},
	}

	for _, check := range checks {
		var sub *cobra.Command
		sub = cmdutils.CobraCommand(
			check.use,
			check.short,
			check.short+".",
			buildInfo,
			cmdutils.RunAsJob,
			func(ctx context.Context, cfg *config.Config) error {
				o := opts
				o.Out = sub.OutOrStdout()
				return check.main(o)(ctx, cfg)
			},
		)
		cmd.AddCommand(sub)
	}

	return cmd
}
