package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medreserve/medreserve-client/pkg/apiclient"
	"github.com/medreserve/medreserve-client/pkg/session"
	sessionmemory "github.com/medreserve/medreserve-client/pkg/session/memory"
)

// backend is a fake MedReserve API. /auth/me only accepts validToken.
type backend struct {
	*httptest.Server

	validToken   atomic.Value
	refreshCalls atomic.Int32
	rejected     atomic.Int32

	mu          sync.Mutex
	authHeaders []string
	refresh     http.HandlerFunc
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	b := &backend{}
	b.validToken.Store("access-1")
	b.refresh = func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("refreshToken") != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.validToken.Store("access-2")
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": "access-2", "refreshToken": "refresh-2"})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		b.mu.Lock()
		refresh := b.refresh
		b.mu.Unlock()
		refresh(w, r)
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, auth)
		b.mu.Unlock()

		if auth != "Bearer "+b.validToken.Load().(string) {
			b.rejected.Add(1)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, session.UserSummary{ID: 1, Email: "patient@example.com", Role: "PATIENT"})
	})
	mux.HandleFunc("GET /admin/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Admins only"})
	})
	mux.HandleFunc("GET /always-401", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)

	return b
}

// onRefresh replaces the /auth/refresh handler. The default rotates to
// access-2 when presented refresh-1.
func (b *backend) onRefresh(h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh = h
}

func (b *backend) refreshHandler() http.HandlerFunc {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refresh
}

func (b *backend) headers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.authHeaders...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type navigatorSpy struct {
	mu      sync.Mutex
	notices []string
}

func (n *navigatorSpy) ToLogin(_ context.Context, notice string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *navigatorSpy) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.notices...)
}

type fixture struct {
	client  *apiclient.Client
	repo    *sessionmemory.Repository
	manager *session.Manager
	nav     *navigatorSpy
	backend *backend
}

func newFixture(t *testing.T, creds session.Credentials, opts ...apiclient.Option) *fixture {
	t.Helper()

	b := newBackend(t)
	repo := sessionmemory.NewRepository()
	if !creds.Empty() {
		require.NoError(t, repo.StoreCredentials(t.Context(), creds))
	}

	nav := &navigatorSpy{}
	manager := session.NewManager(repo, session.WithNavigator(nav))

	client, err := apiclient.New(b.URL, manager, opts...)
	require.NoError(t, err)

	return &fixture{client: client, repo: repo, manager: manager, nav: nav, backend: b}
}
