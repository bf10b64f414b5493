package watch

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/medreserve/medreserve-client/internal/business"
	"github.com/medreserve/medreserve-client/internal/cmdutils"
	"github.com/medreserve/medreserve-client/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"watch",
		"Follow appointment updates",
		"Poll the signed in patient's appointments and report changes. Press Enter to "+
			"count as activity, type quit to stop. The session is signed out after the "+
			"configured inactivity timeout.",
		buildInfo,
		cmdutils.RunAsService,
		func(ctx context.Context, cfg *config.Config) error {
			return business.WatchMain(business.WatchOptions{
				In:  cmd.InOrStdin(),
				Out: cmd.OutOrStdout(),
			})(ctx, cfg)
		},
	)

	return cmd
}
