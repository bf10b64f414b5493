package business

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/internal/config"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
)

// UploadReportMain uploads the file at path as a medical report.
func UploadReportMain(out io.Writer, path string, meta medreserve.ReportMeta) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading report file: %w", err)
		}

		client, closeFn, err := initClient(ctx, cfg, out)
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := client.Reports.Upload(ctx, medreserve.ReportUpload{
			Filename: filepath.Base(path),
			Data:     data,
			Meta:     meta,
		})
		if err != nil {
			return userError(err)
		}

		_, _ = fmt.Fprintf(out, "Uploaded report %d: %s\n", report.ID, report.Title)
		return nil
	}
}

// DownloadOptions control DownloadReportMain.
type DownloadOptions struct {
	ReportID int64
	// Dir receives the file, under the name the backend sends.
	Dir string
	// VerifyHeaders fails the download when the response may be cached or
	// sniffed by a browser.
	VerifyHeaders bool
}

// DownloadReportMain downloads a medical report into opts.Dir.
func DownloadReportMain(out io.Writer, opts DownloadOptions) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		client, closeFn, err := initClient(ctx, cfg, out)
		if err != nil {
			return err
		}
		defer closeFn()

		file, err := client.Reports.Download(ctx, opts.ReportID)
		if err != nil {
			return userError(err)
		}

		if opts.VerifyHeaders {
			if err := medreserve.VerifyDownloadHeaders(file.Header, file.Filename); err != nil {
				return err
			}
		}

		target, err := saveDownload(opts.Dir, file)
		if err != nil {
			return err
		}

		slogctx.Debug(ctx, "Report downloaded", "report_id", opts.ReportID, "path", target, "content_type", file.ContentType)
		_, _ = fmt.Fprintf(out, "Saved %s (%d bytes)\n", target, len(file.Data))
		return nil
	}
}

// saveDownload writes file into dir. Only the base of the server supplied
// name is used.
func saveDownload(dir string, file medreserve.ReportFile) (string, error) {
	if dir == "" {
		dir = "."
	}

	name := filepath.Base(filepath.Clean("/" + file.Filename))
	if name == "/" || name == "." {
		name = medreserve.DefaultDownloadName
	}

	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, file.Data, 0o600); err != nil {
		return "", fmt.Errorf("saving report: %w", err)
	}

	return target, nil
}

// BookAppointmentMain books an appointment for the signed in patient.
func BookAppointmentMain(out io.Writer, in medreserve.BookingRequest) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		client, closeFn, err := initClient(ctx, cfg, out)
		if err != nil {
			return err
		}
		defer closeFn()

		appt, err := client.Appointments.Book(ctx, normalizeBooking(in))
		if err != nil {
			return userError(err)
		}

		_, _ = fmt.Fprintf(out, "Booked appointment %d at %s (%s)\n", appt.ID, appt.AppointmentDateTime, appt.Status)
		return nil
	}
}

// bookingCoercers accept the HTML datetime-local form and any case for the
// appointment type.
var bookingCoercers = map[string]medreserve.Coercer{
	"appointmentDateTime": func(v any) any {
		s, _ := v.(string)
		return strings.Replace(strings.TrimSpace(s), "T", " ", 1)
	},
	"appointmentType": func(v any) any {
		s, _ := v.(string)
		return strings.ToUpper(s)
	},
}

// normalizeBooking trims the text fields of in. Blank fields end up empty so
// validation rejects them before anything is sent.
func normalizeBooking(in medreserve.BookingRequest) medreserve.BookingRequest {
	p := medreserve.NormalizePayload(map[string]any{
		"appointmentDateTime": in.AppointmentDateTime,
		"appointmentType":     in.AppointmentType,
		"chiefComplaint":      in.ChiefComplaint,
		"symptoms":            in.Symptoms,
	}, bookingCoercers)

	in.AppointmentDateTime = formText(p["appointmentDateTime"])
	in.AppointmentType = formText(p["appointmentType"])
	in.ChiefComplaint = formText(p["chiefComplaint"])
	in.Symptoms = formText(p["symptoms"])

	return in
}

// formText turns a normalized value back into text. Text reading "true" or
// "false" comes back lower cased.
func formText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
