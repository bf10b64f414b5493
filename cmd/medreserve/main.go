package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/cmd/medreserve/account"
	"github.com/medreserve/medreserve-client/cmd/medreserve/appointments"
	"github.com/medreserve/medreserve-client/cmd/medreserve/reports"
	"github.com/medreserve/medreserve-client/cmd/medreserve/smoke"
	"github.com/medreserve/medreserve-client/cmd/medreserve/watch"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"

	isVersionCmd     bool
	gracefulShutdown time.Duration
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "MedReserve client version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		isVersionCmd = true

		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medreserve",
		Short: "MedReserve client",
		Long:  "Command line client for the MedReserve appointment and medical records backend.",
	}

	cmd.PersistentFlags().DurationVar(&gracefulShutdown, "graceful-shutdown", 0, "graceful shutdown")

	cmd.AddCommand(versionCmd)
	cmd.AddCommand(account.Cmds(BuildInfo)...)
	cmd.AddCommand(
		reports.Cmd(BuildInfo),
		appointments.Cmd(BuildInfo),
		watch.Cmd(BuildInfo),
		smoke.Cmd(BuildInfo),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "command failed", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	if !isVersionCmd && gracefulShutdown > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "Graceful shutdown in %s\n", gracefulShutdown)
		time.Sleep(gracefulShutdown)
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
