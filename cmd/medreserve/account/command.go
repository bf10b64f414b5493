package account

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medreserve/medreserve-client/internal/business"
	"github.com/medreserve/medreserve-client/internal/cmdutils"
	"github.com/medreserve/medreserve-client/internal/config"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
)

var errNoPassword = errors.New("no password given")

// Cmds returns the commands managing the signed in account.
func Cmds(buildInfo string) []*cobra.Command {
	return []*cobra.Command{
		loginCmd(buildInfo),
		signupCmd(buildInfo),
		logoutCmd(buildInfo),
		statusCmd(buildInfo),
		changePasswordCmd(buildInfo),
	}
}

func loginCmd(buildInfo string) *cobra.Command {
	var in medreserve.LoginRequest
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"login",
		"Sign in",
		"Sign in with email and password. The password is read from stdin when --password is not set.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			password, err := passwordOrStdin(cmd.InOrStdin(), in.Password)
			if err != nil {
				return err
			}
			in.Password = password

			return business.LoginMain(cmd.OutOrStdout(), in)(ctx, cfg)
		},
	)

	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func signupCmd(buildInfo string) *cobra.Command {
	in := medreserve.SignupRequest{Role: "PATIENT"}
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"signup",
		"Register a new account",
		"Register a new account. Signing up does not sign in.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			password, err := passwordOrStdin(cmd.InOrStdin(), in.Password)
			if err != nil {
				return err
			}
			in.Password = password

			return business.SignupMain(cmd.OutOrStdout(), in)(ctx, cfg)
		},
	)

	flags := cmd.Flags()
	flags.StringVar(&in.FirstName, "first-name", "", "first name")
	flags.StringVar(&in.LastName, "last-name", "", "last name")
	flags.StringVar(&in.Email, "email", "", "account email")
	flags.StringVar(&in.Password, "password", "", "account password")
	flags.StringVar(&in.PhoneNumber, "phone", "", "mobile number, +91 followed by 10 digits")
	flags.StringVar(&in.Role, "role", in.Role, "PATIENT, DOCTOR or ADMIN")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func logoutCmd(buildInfo string) *cobra.Command {
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"logout",
		"Sign out",
		"Sign out on the backend and remove the stored credentials.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.LogoutMain(cmd.OutOrStdout())(ctx, cfg)
		},
	)

	return cmd
}

func statusCmd(buildInfo string) *cobra.Command {
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"status",
		"Show the signed in account",
		"Show the signed in account, the access token expiry and any pending sign out notice.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.StatusMain(cmd.OutOrStdout(), nil)(ctx, cfg)
		},
	)

	return cmd
}

func changePasswordCmd(buildInfo string) *cobra.Command {
	var in medreserve.ChangePasswordRequest
	var cmd *cobra.Command
	cmd = cmdutils.CobraCommand(
		"change-password",
		"Change the account password",
		"Change the password of the signed in account.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.ChangePasswordMain(cmd.OutOrStdout(), in)(ctx, cfg)
		},
	)

	cmd.Flags().StringVar(&in.CurrentPassword, "current", "", "current password")
	cmd.Flags().StringVar(&in.NewPassword, "new", "", "new password")
	cmd.MarkFlagsRequiredTogether("current", "new")
	_ = cmd.MarkFlagRequired("current")

	return cmd
}

// passwordOrStdin returns password, or the first line of in when it is empty.
func passwordOrStdin(in io.Reader, password string) (string, error) {
	if password != "" {
		return password, nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errNoPassword
	}

	return line, nil
}
