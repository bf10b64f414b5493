package apiclient

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Build(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		req     func() *Request
		wantURL string
	}{
		{
			name:    "joins path onto base",
			base:    "http://localhost:8080",
			req:     func() *Request { return NewRequest(http.MethodGet, "/doctors/3") },
			wantURL: "http://localhost:8080/doctors/3",
		},
		{
			name:    "keeps base path",
			base:    "https://api.example.com/api",
			req:     func() *Request { return NewRequest(http.MethodGet, "/auth/me") },
			wantURL: "https://api.example.com/api/auth/me",
		},
		{
			name: "encodes query",
			base: "http://localhost:8080",
			req: func() *Request {
				return NewRequest(http.MethodPut, "/appointments/9/reschedule").SetQuery("newDateTime", "2026-05-01 10:30")
			},
			wantURL: "http://localhost:8080/appointments/9/reschedule?newDateTime=2026-05-01+10%3A30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := url.Parse(tt.base)
			require.NoError(t, err)

			httpReq, err := tt.req().build(t.Context(), base)
			require.NoError(t, err)

			assert.Equal(t, tt.wantURL, httpReq.URL.String())
		})
	}
}

func TestRequest_SetJSON(t *testing.T) {
	req := NewRequest(http.MethodPost, "/auth/login")
	require.NoError(t, req.SetJSON(map[string]string{"email": "a@example.com"}))

	base, _ := url.Parse("http://localhost")
	httpReq, err := req.build(t.Context(), base)
	require.NoError(t, err)

	body, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@example.com"}`, string(body))
	assert.Equal(t, "application/json", httpReq.Header.Get("Content-Type"))
	assert.NotNil(t, httpReq.GetBody, "body must be replayable")
}

func TestRequest_SetMultipart(t *testing.T) {
	report, err := JSONPart("report", map[string]any{"title": "X-Ray", "shareWithDoctor": false})
	require.NoError(t, err)

	req := NewRequest(http.MethodPost, "/medical-reports/upload")
	require.NoError(t, req.SetMultipart(
		Part{Name: "file", Filename: `scan "1".png`, ContentType: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}},
		report,
	))

	mediaType, params, err := mime.ParseMediaType(req.ContentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	mr := multipart.NewReader(strings.NewReader(string(req.Body)), params["boundary"])

	file, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "file", file.FormName())
	assert.Equal(t, `scan "1".png`, file.FileName())
	assert.Equal(t, "image/png", file.Header.Get("Content-Type"))

	meta, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "report", meta.FormName())
	assert.Equal(t, "application/json", meta.Header.Get("Content-Type"))
	data, err := io.ReadAll(meta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"X-Ray","shareWithDoctor":false}`, string(data))

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRequest_Retry(t *testing.T) {
	req := NewRequest(http.MethodGet, "/auth/me")
	replay := req.retry()

	assert.False(t, req.Retried())
	assert.True(t, replay.Retried())
	assert.Equal(t, req.Path, replay.Path)
}
