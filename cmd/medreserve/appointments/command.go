package appointments

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
		Use:   "appointments",
		Short: "Manage appointments",
	}

	cmd.AddCommand(bookCmd(buildInfo))

	return cmd
}

func bookCmd(buildInfo string) *cobra.Command {
	in := medreserve.BookingRequest{AppointmentType: "CONSULTATION", DurationMinutes: 30}
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"book",
		"Book an appointment",
		"Book an appointment with a doctor. --at uses the format yyyy-MM-dd HH:mm.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.BookAppointmentMain(cmd.OutOrStdout(), in)(ctx, cfg)
		},
	)

	flags := cmd.Flags()
	flags.Int64Var(&in.DoctorID, "doctor", 0, "doctor id")
	flags.StringVar(&in.AppointmentDateTime, "at", "", "appointment time, yyyy-MM-dd HH:mm")
	flags.StringVar(&in.AppointmentType, "type", in.AppointmentType, "appointment type")
	flags.StringVar(&in.ChiefComplaint, "complaint", "", "chief complaint")
	flags.StringVar(&in.Symptoms, "symptoms", "", "symptoms")
	flags.IntVar(&in.DurationMinutes, "duration", in.DurationMinutes, "duration in minutes")
	_ = cmd.MarkFlagRequired("doctor")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}
