package medreserve

import (
	"context"
	"fmt"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/medreserve/medreserve-client/internal/serviceerr"
	"github.com/medreserve/medreserve-client/pkg/apiclient"
)

const (
	MsgUploadLimit = "Upload limit reached. Please wait before uploading again."

	defaultReportType = "OTHER"
)

type ReportService service

// List returns the signed in user's reports.
func (s *ReportService) List(ctx context.Context, opts *ListOptions) (Page[MedicalReport], error) {
	var page Page[MedicalReport]
	err := s.client.api.Get(ctx, "/medical-reports/my-reports", opts.values(), &page)

	return page, err
}

func (s *ReportService) Get(ctx context.Context, id int64) (MedicalReport, error) {
	var r MedicalReport
	err := s.client.api.Get(ctx, reportPath(id), nil, &r)

	return r, err
}

// Upload sends a report as multipart form data with a "file" part and a
// JSON "report" part. Uploads above the configured per-minute quota fail
// with *serviceerr.RateLimitError without reaching the backend.
func (s *ReportService) Upload(ctx context.Context, in ReportUpload) (MedicalReport, error) {
	if err := Validate(in); err != nil {
		return MedicalReport{}, err
	}

	if in.Meta.ReportType == "" {
		in.Meta.ReportType = defaultReportType
	}
	if in.ContentType == "" {
		in.ContentType = http.DetectContentType(in.Data)
	}

	meta, err := apiclient.JSONPart("report", in.Meta)
	if err != nil {
		return MedicalReport{}, err
	}

	req := apiclient.NewRequest(http.MethodPost, "/medical-reports/upload")
	if err := req.SetMultipart(
		apiclient.Part{Name: "file", Filename: in.Filename, ContentType: in.ContentType, Data: in.Data},
		meta,
	); err != nil {
		return MedicalReport{}, err
	}

	reservation := s.client.uploads.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		slogctx.Warn(ctx, "Upload throttled", "retry_after", delay)
		return MedicalReport{}, &serviceerr.RateLimitError{Message: MsgUploadLimit, RetryAfter: delay}
	}

	var r MedicalReport
	if err := s.client.api.DoJSON(ctx, req, &r); err != nil {
		return MedicalReport{}, err
	}

	return r, nil
}

// Download fetches the report file. The filename comes from
// Content-Disposition and falls back to DefaultDownloadName.
func (s *ReportService) Download(ctx context.Context, id int64) (ReportFile, error) {
	req := apiclient.NewRequest(http.MethodGet, reportPath(id)+"/download").SetHeader("Accept", "*/*")

	resp, err := s.client.api.Do(ctx, req)
	if err != nil {
		return ReportFile{}, err
	}

	return ReportFile{
		Filename:    FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        resp.Body,
		Header:      resp.Header,
	}, nil
}

func (s *ReportService) Delete(ctx context.Context, id int64) error {
	return s.client.api.Delete(ctx, reportPath(id), nil)
}

func reportPath(id int64) string {
	return fmt.Sprintf("/medical-reports/%d", id)
}
