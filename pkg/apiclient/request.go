package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	headerRequestID = "X-Request-ID"
)

// Request describes a call against the backend. The body is buffered so that
// the request can be replayed after a token refresh.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
	// Anonymous requests carry no bearer token and a 401 never refreshes.
	Anonymous bool

	retried bool
}

func NewRequest(method, path string) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Query:  url.Values{},
		Header: http.Header{},
	}
}

func (r *Request) SetQuery(key, value string) *Request {
	r.Query.Set(key, value)
	return r
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Header.Set(key, value)
	return r
}

// SetJSON encodes v as the request body.
func (r *Request) SetJSON(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	r.Body = body
	r.ContentType = contentTypeJSON

	return nil
}

// Part is one field of a multipart form.
type Part struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// JSONPart builds a multipart field holding v as JSON.
func JSONPart(name string, v any) (Part, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Part{}, fmt.Errorf("encoding %s part: %w", name, err)
	}

	return Part{Name: name, ContentType: contentTypeJSON, Data: data}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// SetMultipart encodes parts as a multipart/form-data body.
func (r *Request) SetMultipart(parts ...Part) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range parts {
		disposition := fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(p.Name))
		if p.Filename != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(p.Filename))
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", disposition)
		if p.ContentType != "" {
			h.Set("Content-Type", p.ContentType)
		}

		pw, err := w.CreatePart(h)
		if err != nil {
			return fmt.Errorf("creating %s part: %w", p.Name, err)
		}
		if _, err := pw.Write(p.Data); err != nil {
			return fmt.Errorf("writing %s part: %w", p.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	r.Body = buf.Bytes()
	r.ContentType = w.FormDataContentType()

	return nil
}

// Retried reports whether the request is a replay after a token refresh.
func (r *Request) Retried() bool {
	return r.retried
}

func (r *Request) retry() *Request {
	clone := *r
	clone.retried = true

	return &clone
}

func (r *Request) build(ctx context.Context, base *url.URL) (*http.Request, error) {
	u := base.JoinPath(r.Path)
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("creating http request: %w", err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", contentTypeJSON+", */*")
	}

	return req, nil
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) DecodeJSON(into any) error {
	if err := json.Unmarshal(r.Body, into); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}

	return nil
}
