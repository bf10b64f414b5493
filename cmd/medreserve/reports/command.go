package reports

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/medreserve/medreserve-client/internal/business"
	"github.com/medreserve/medreserve-client/internal/cmdutils"
	"github.com/medreserve/medreserve-client/internal/config"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
)

func Cmd(buildInfo string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage medical reports",
	}

	cmd.AddCommand(uploadCmd(buildInfo), downloadCmd(buildInfo))

	return cmd
}

func uploadCmd(buildInfo string) *cobra.Command {
	var path string
	var meta medreserve.ReportMeta
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"upload",
		"Upload a medical report",
		"Upload a file as a medical report. Uploads are limited per minute.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.UploadReportMain(cmd.OutOrStdout(), path, meta)(ctx, cfg)
		},
	)

	flags := cmd.Flags()
	flags.StringVar(&path, "file", "", "file to upload")
	flags.StringVar(&meta.Title, "title", "", "report title")
	flags.StringVar(&meta.Description, "description", "", "report description")
	flags.StringVar(&meta.ReportType, "type", "OTHER", "report type")
	flags.BoolVar(&meta.ShareWithDoctor, "share", false, "share the report with the doctor")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func downloadCmd(buildInfo string) *cobra.Command {
	var opts business.DownloadOptions
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"download",
		"Download a medical report",
		"Download a medical report into a directory under the name the backend sends.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.DownloadReportMain(cmd.OutOrStdout(), opts)(ctx, cfg)
		},
	)

	flags := cmd.Flags()
	flags.Int64Var(&opts.ReportID, "id", 0, "report id")
	flags.StringVar(&opts.Dir, "dir", ".", "target directory")
	flags.BoolVar(&opts.VerifyHeaders, "verify-headers", false, "fail unless the download is an uncached attachment")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
