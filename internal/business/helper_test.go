package business

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medreserve/medreserve-client/internal/config"
	"github.com/medreserve/medreserve-client/pkg/medreserve"
	"github.com/medreserve/medreserve-client/pkg/session"
	sessionmemory "github.com/medreserve/medreserve-client/pkg/session/memory"
)

const (
	testEmail    = "asha@example.com"
	testPassword = "StrongPwd1@"
)

type account struct {
	password string
	user     session.UserSummary
}

// backend fakes the MedReserve endpoints the commands use.
type backend struct {
	*httptest.Server

	mu           sync.Mutex
	accounts     map[string]*account
	tokens       map[string]string
	reports      map[int64]medreserve.MedicalReport
	files        map[int64][]byte
	appointments []medreserve.Appointment
	bookings     []medreserve.BookingRequest
	uploadQuota  int
	uploads      int
	nextID       int64
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	b := &backend{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
		reports:  map[int64]medreserve.MedicalReport{},
		files:    map[int64][]byte{},
	}
	b.accounts[testEmail] = &account{
		password: testPassword,
		user:     session.UserSummary{ID: 1, Email: testEmail, FirstName: "Asha", LastName: "Rao", Role: "PATIENT"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", b.signup)
	mux.HandleFunc("POST /auth/login", b.login)
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid refresh token"})
	})
	mux.HandleFunc("POST /auth/signout", b.authorized(func(w http.ResponseWriter, _ *http.Request, _ *account) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
	}))
	mux.HandleFunc("GET /auth/me", b.authorized(func(w http.ResponseWriter, _ *http.Request, a *account) {
		writeJSON(w, http.StatusOK, a.user)
	}))
	mux.HandleFunc("POST /auth/change-password", b.authorized(b.changePassword))
	mux.HandleFunc("POST /medical-reports/upload", b.authorized(b.upload))
	mux.HandleFunc("GET /medical-reports/{id}/download", b.authorized(b.download))
	mux.HandleFunc("GET /appointments/patient/my-appointments", b.authorized(b.listAppointments))
	mux.HandleFunc("POST /appointments/book", b.authorized(b.book))

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)

	return b
}

func (b *backend) authorized(h func(http.ResponseWriter, *http.Request, *account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		b.mu.Lock()
		a, ok := b.accounts[b.tokens[token]]
		b.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		h(w, r, a)
	}
}

func (b *backend) signup(w http.ResponseWriter, r *http.Request) {
	var in medreserve.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.accounts[in.Email]; ok {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email is already in use"})
		return
	}
	b.nextID++
	b.accounts[in.Email] = &account{
		password: in.Password,
		user: session.UserSummary{
			ID: b.nextID + 100, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName,
			Role: in.Role, PhoneNumber: in.PhoneNumber,
		},
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var in medreserve.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&in)

	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.accounts[in.Email]
	if !ok || a.password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
		return
	}

	b.nextID++
	token := fmt.Sprintf("access-%d", b.nextID)
	b.tokens[token] = in.Email

	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  token,
		"refreshToken": fmt.Sprintf("refresh-%d", b.nextID),
		"user":         a.user,
	})
}

func (b *backend) changePassword(w http.ResponseWriter, r *http.Request, a *account) {
	var in medreserve.ChangePasswordRequest
	_ = json.NewDecoder(r.Body).Decode(&in)

	b.mu.Lock()
	defer b.mu.Unlock()

	if in.CurrentPassword != a.password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Current password is incorrect"})
		return
	}
	a.password = in.NewPassword

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (b *backend) upload(w http.ResponseWriter, r *http.Request, _ *account) {
	b.mu.Lock()
	b.uploads++
	limited := b.uploadQuota > 0 && b.uploads > b.uploadQuota
	b.mu.Unlock()

	if limited {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "Upload limit exceeded"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	defer file.Close()

	data, _ := io.ReadAll(file)

	var meta medreserve.ReportMeta
	_ = json.Unmarshal([]byte(r.FormValue("report")), &meta)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	report := medreserve.MedicalReport{
		ID:          b.nextID,
		Title:       meta.Title,
		ReportType:  meta.ReportType,
		FileName:    header.Filename,
		FileSize:    int64(len(data)),
		ContentType: header.Header.Get("Content-Type"),
	}
	b.reports[report.ID] = report
	b.files[report.ID] = data

	writeJSON(w, http.StatusOK, report)
}

func (b *backend) download(w http.ResponseWriter, r *http.Request, _ *account) {
	var id int64
	_, _ = fmt.Sscan(r.PathValue("id"), &id)

	b.mu.Lock()
	report, ok := b.reports[id]
	data := b.files[id]
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Report not found"})
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(data)
}

func (b *backend) listAppointments(w http.ResponseWriter, _ *http.Request, _ *account) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON(w, http.StatusOK, medreserve.Page[medreserve.Appointment]{
		Content:       b.appointments,
		TotalElements: int64(len(b.appointments)),
		TotalPages:    1,
		Size:          len(b.appointments),
	})
}

func (b *backend) book(w http.ResponseWriter, r *http.Request, _ *account) {
	var in medreserve.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.bookings = append(b.bookings, in)

	writeJSON(w, http.StatusOK, medreserve.Appointment{ID: b.nextID, AppointmentDateTime: in.AppointmentDateTime, Status: "SCHEDULED"})
}

func (b *backend) receivedBookings() []medreserve.BookingRequest {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]medreserve.BookingRequest(nil), b.bookings...)
}

func (b *backend) setAppointments(appts ...medreserve.Appointment) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.appointments = appts
}

// addReport registers a downloadable report under filename.
func (b *backend) addReport(filename string, data []byte) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.reports[b.nextID] = medreserve.MedicalReport{ID: b.nextID, FileName: filename, ContentType: "image/png"}
	b.files[b.nextID] = data

	return b.nextID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.API{
			BaseURL:          baseURL,
			Timeout:          5 * time.Second,
			UploadsPerMinute: medreserve.DefaultUploadsPerMinute,
		},
		Inactivity: config.Inactivity{
			Timeout:            5 * time.Minute,
			WarningLead:        time.Minute,
			RescheduleInterval: time.Second,
		},
		Poll:         config.Poll{Interval: time.Minute},
		SessionStore: config.SessionStore{Type: config.SessionStoreMemory},
	}
}

// useSharedRepository makes every command of the test share repo, the way
// the valkey store is shared between separate runs of the binary.
func useSharedRepository(t *testing.T) *sessionmemory.Repository {
	t.Helper()

	repo := sessionmemory.NewRepository()
	orig := openSessionRepository
	openSessionRepository = func(context.Context, *config.Config) (session.Repository, func(), error) {
		return repo, func() {}, nil
	}
	t.Cleanup(func() { openSessionRepository = orig })

	return repo
}

// signIn stores credentials for the test account issued by b.
func (b *backend) signIn(t *testing.T, repo session.Repository) session.Credentials {
	t.Helper()

	b.mu.Lock()
	b.tokens["access-seeded"] = testEmail
	user := b.accounts[testEmail].user
	b.mu.Unlock()

	creds := session.Credentials{AccessToken: "access-seeded", RefreshToken: "refresh-seeded", User: user}
	require.NoError(t, repo.StoreCredentials(t.Context(), creds))

	return creds
}

// revoke makes b reject token from now on.
func (b *backend) revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.tokens, token)
}
