package medreserve

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// DefaultDownloadName is used when Content-Disposition carries no filename.
const DefaultDownloadName = "report"

var (
	ErrUnsafeDownload = errors.New("unsafe download response")

	dispositionFilename = regexp.MustCompile(`(?i)filename="?([^";]+)"?`)
)

// FilenameFromDisposition extracts the filename of a Content-Disposition
// header value.
func FilenameFromDisposition(v string) string {
	m := dispositionFilename.FindStringSubmatch(v)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return DefaultDownloadName
	}

	return m[1]
}

// VerifyDownloadHeaders checks that a report download is served as a
// non-cacheable, non-sniffable attachment named filename. Every violation is
// reported; each one matches ErrUnsafeDownload.
func VerifyDownloadHeaders(h http.Header, filename string) error {
	var errs []error
	violation := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnsafeDownload, fmt.Sprintf(format, args...)))
	}

	contentType := h.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") && contentType != "application/octet-stream" {
		violation("unexpected Content-Type %q", contentType)
	}

	disposition := h.Get("Content-Disposition")
	if !strings.Contains(strings.ToLower(disposition), "attachment") {
		violation("Content-Disposition %q is not an attachment", disposition)
	}
	if !strings.Contains(disposition, `filename="`) || !strings.Contains(disposition, filename) {
		violation("Content-Disposition %q does not preserve filename %q", disposition, filename)
	}

	if v := h.Get("Cache-Control"); !strings.Contains(strings.ToLower(v), "no-store") {
		violation("Cache-Control %q lacks no-store", v)
	}
	if v := h.Get("Pragma"); !strings.Contains(strings.ToLower(v), "no-cache") {
		violation("Pragma %q lacks no-cache", v)
	}
	if v := h.Get("Expires"); v != "0" {
		violation("Expires is %q, want 0", v)
	}
	if v := h.Get("X-Content-Type-Options"); !strings.EqualFold(v, "nosniff") {
		violation("X-Content-Type-Options is %q, want nosniff", v)
	}

	return errors.Join(errs...)
}
