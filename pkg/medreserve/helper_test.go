package medreserve_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medreserve/medreserve-client/pkg/apiclient"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
	"github.com/medreserve/medreserve-client/pkg/session"
	sessionmemory "github.com/medreserve/medreserve-client/pkg/session/memory"
)

const (
	patientEmail    = "patient@example.com"
	patientPassword = "StrongPwd1@"
)

var patient = session.UserSummary{ID: 7, Email: patientEmail, FirstName: "Asha", LastName: "Rao", Role: "PATIENT"}

// server fakes the parts of the MedReserve backend a test registers.
type server struct {
	*httptest.Server
	mux *http.ServeMux

	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte

	refreshCalls atomic.Int32
	validToken   atomic.Value
}

func newServer(t *testing.T) *server {
	t.Helper()

	s := &server{mux: http.NewServeMux()}
	s.validToken.Store("access-1")

	s.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		if r.URL.Query().Get("refreshToken") != "refresh-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid refresh token"})
			return
		}
		s.validToken.Store("access-2")
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": "access-2"})
	})

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := readBody(r)
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		s.bodies = append(s.bodies, body)
		s.mu.Unlock()

		s.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)

	return s
}

// authorized rejects requests that do not carry the currently valid token.
func (s *server) authorized(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.validToken.Load().(string) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		h(w, r)
	}
}

func (s *server) last() (*http.Request, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return nil, nil
	}

	return s.requests[len(s.requests)-1], s.bodies[len(s.bodies)-1]
}

func (s *server) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.requests {
		if r.URL.Path == path {
			n++
		}
	}

	return n
}

func readBody(r *http.Request) []byte {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type fixture struct {
	srv     *server
	repo    *sessionmemory.Repository
	manager *session.Manager
	client  *medreserve.Client
}

func newFixture(t *testing.T, creds session.Credentials, opts ...medreserve.Option) *fixture {
	t.Helper()

	srv := newServer(t)
	repo := sessionmemory.NewRepository()
	if !creds.Empty() {
		require.NoError(t, repo.StoreCredentials(t.Context(), creds))
	}
	manager := session.NewManager(repo)

	api, err := apiclient.New(srv.URL, manager)
	require.NoError(t, err)

	return &fixture{srv: srv, repo: repo, manager: manager, client: medreserve.New(api, opts...)}
}

func signedIn() session.Credentials {
	return session.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1", User: patient}
}
