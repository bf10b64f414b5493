//go:build integration

package integration_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// backend is a minimal MedReserve backend enforcing an upload quota.
type backend struct {
	*httptest.Server

	mu        sync.Mutex
	passwords map[string]string
	profiles  map[string]map[string]any
	tokens    map[string]string
	files     map[int]upload
	uploads   map[string]int
	quota     int
	nextID    int
}

type upload struct {
	name, contentType string
	data              []byte
}

func newBackend(t *testing.T, quota int) *backend {
	t.Helper()

	b := &backend{
		passwords: map[string]string{},
		profiles:  map[string]map[string]any{},
		tokens:    map[string]string{},
		files:     map[int]upload{},
		uploads:   map[string]int{},
		quota:     quota,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", b.signup)
	mux.HandleFunc("POST /auth/login", b.login)
	mux.HandleFunc("POST /auth/signout", b.authorized(func(w http.ResponseWriter, _ *http.Request, _ string) {
		reply(w, http.StatusOK, map[string]any{"message": "Signed out"})
	}))
	mux.HandleFunc("GET /auth/me", b.authorized(func(w http.ResponseWriter, _ *http.Request, email string) {
		b.mu.Lock()
		defer b.mu.Unlock()
		reply(w, http.StatusOK, b.profiles[email])
	}))
	mux.HandleFunc("POST /auth/change-password", b.authorized(b.changePassword))
	mux.HandleFunc("POST /medical-reports/upload", b.authorized(b.upload))
	mux.HandleFunc("GET /medical-reports/{id}/download", b.authorized(b.download))

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)

	return b
}

func (b *backend) authorized(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		email, ok := b.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		b.mu.Unlock()

		if !ok {
			reply(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
			return
		}
		h(w, r, email)
	}
}

func (b *backend) signup(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	_ = json.NewDecoder(r.Body).Decode(&in)
	email, _ := in["email"].(string)
	password, _ := in["password"].(string)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.passwords[email]; ok {
		reply(w, http.StatusBadRequest, map[string]any{"message": "Email is already in use"})
		return
	}
	b.passwords[email] = password
	delete(in, "password")
	b.profiles[email] = in

	reply(w, http.StatusOK, map[string]any{"message": "User registered successfully"})
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&in)

	b.mu.Lock()
	defer b.mu.Unlock()

	if pw, ok := b.passwords[in.Email]; !ok || pw != in.Password {
		reply(w, http.StatusUnauthorized, map[string]any{"message": "Invalid email or password"})
		return
	}

	b.nextID++
	token := fmt.Sprintf("token-%d", b.nextID)
	b.tokens[token] = in.Email

	reply(w, http.StatusOK, map[string]any{
		"accessToken":  token,
		"refreshToken": "refresh-" + token,
		"user":         b.profiles[in.Email],
	})
}

func (b *backend) changePassword(w http.ResponseWriter, r *http.Request, email string) {
	var in struct{ CurrentPassword, NewPassword string }
	_ = json.NewDecoder(r.Body).Decode(&in)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.passwords[email] != in.CurrentPassword {
		reply(w, http.StatusBadRequest, map[string]any{"message": "Current password is incorrect"})
		return
	}
	b.passwords[email] = in.NewPassword

	reply(w, http.StatusOK, map[string]any{"message": "Password changed successfully"})
}

func (b *backend) upload(w http.ResponseWriter, r *http.Request, email string) {
	b.mu.Lock()
	b.uploads[email]++
	limited := b.quota > 0 && b.uploads[email] > b.quota
	b.mu.Unlock()

	if limited {
		reply(w, http.StatusTooManyRequests, map[string]any{"message": "Upload limit exceeded. Try again later."})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		reply(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.files[b.nextID] = upload{name: header.Filename, contentType: header.Header.Get("Content-Type"), data: data}

	reply(w, http.StatusOK, map[string]any{"id": b.nextID, "title": "report", "fileName": header.Filename})
}

func (b *backend) download(w http.ResponseWriter, r *http.Request, _ string) {
	var id int
	_, _ = fmt.Sscan(r.PathValue("id"), &id)

	b.mu.Lock()
	f, ok := b.files[id]
	b.mu.Unlock()

	if !ok {
		reply(w, http.StatusNotFound, map[string]any{"message": "Report not found"})
		return
	}

	w.Header().Set("Content-Type", f.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.name))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(f.data)
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
