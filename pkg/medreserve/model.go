package medreserve

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/medreserve/medreserve-client/pkg/session"
)

// DateTimeLayout is the backend's yyyy-MM-dd HH:mm format.
const DateTimeLayout = "2006-01-02 15:04"

// FormatDateTime renders t in DateTimeLayout using t's own location.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// Document is a response whose shape the client does not interpret.
type Document map[string]any

// MessageResponse is the backend's generic acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
	Success *bool  `json:"success,omitempty"`
}

// Page is a Spring Data page.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// ListOptions selects a page. A nil *ListOptions uses the backend defaults.
type ListOptions struct {
	Page int
	Size int
	Sort string
}

func (o *ListOptions) values() url.Values {
	v := url.Values{}
	if o == nil {
		return v
	}

	v.Set("page", strconv.Itoa(o.Page))
	if o.Size > 0 {
		v.Set("size", strconv.Itoa(o.Size))
	}
	if o.Sort != "" {
		v.Set("sort", o.Sort)
	}

	return v
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse accepts the profile either flat or nested under "user".
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         *session.UserSummary `json:"user,omitempty"`
	session.UserSummary
}

func (r LoginResponse) profile() session.UserSummary {
	if r.User != nil {
		return *r.User
	}

	return r.UserSummary
}

type SignupRequest struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,strongpassword"`
	PhoneNumber string `json:"phoneNumber" validate:"required,indianphone"`
	Role        string `json:"role" validate:"required,oneof=PATIENT DOCTOR ADMIN"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword,nefield=CurrentPassword"`
}

type Doctor struct {
	ID              int64   `json:"id"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Email           string  `json:"email,omitempty"`
	Specialization  string  `json:"specialization,omitempty"`
	ExperienceYears int     `json:"experienceYears,omitempty"`
	ConsultationFee float64 `json:"consultationFee,omitempty"`
	Rating          float64 `json:"rating,omitempty"`
}

type DoctorRegistration struct {
	SignupRequest
	Specialization  string  `json:"specialization" validate:"required"`
	LicenseNumber   string  `json:"licenseNumber" validate:"required"`
	ExperienceYears int     `json:"experienceYears" validate:"gte=0"`
	ConsultationFee float64 `json:"consultationFee" validate:"gte=0"`
}

type Appointment struct {
	ID                  int64  `json:"id"`
	DoctorID            int64  `json:"doctorId,omitempty"`
	DoctorName          string `json:"doctorName,omitempty"`
	PatientID           int64  `json:"patientId,omitempty"`
	PatientName         string `json:"patientName,omitempty"`
	AppointmentDateTime string `json:"appointmentDateTime"`
	AppointmentType     string `json:"appointmentType,omitempty"`
	Status              string `json:"status,omitempty"`
	ChiefComplaint      string `json:"chiefComplaint,omitempty"`
	Symptoms            string `json:"symptoms,omitempty"`
	DurationMinutes     int    `json:"durationMinutes,omitempty"`
}

type BookingRequest struct {
	DoctorID            int64  `json:"doctorId" validate:"required,gt=0"`
	AppointmentDateTime string `json:"appointmentDateTime" validate:"required,datetime=2006-01-02 15:04"`
	AppointmentType     string `json:"appointmentType" validate:"required"`
	ChiefComplaint      string `json:"chiefComplaint" validate:"required"`
	Symptoms            string `json:"symptoms"`
	DurationMinutes     int    `json:"durationMinutes" validate:"gte=0"`
}

type MedicalReport struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	ReportType      string `json:"reportType,omitempty"`
	FileName        string `json:"fileName,omitempty"`
	FileSize        int64  `json:"fileSize,omitempty"`
	ContentType     string `json:"contentType,omitempty"`
	ShareWithDoctor bool   `json:"shareWithDoctor"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

// ReportMeta is sent as the JSON "report" part of an upload.
type ReportMeta struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	ReportType      string `json:"reportType"`
	ShareWithDoctor bool   `json:"shareWithDoctor"`
}

type ReportUpload struct {
	Filename    string `validate:"required"`
	ContentType string
	Data        []byte `validate:"min=1"`
	Meta        ReportMeta
}

// ReportFile is a downloaded report.
type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Header      http.Header
}

type Prescription struct {
	ID            int64      `json:"id"`
	AppointmentID int64      `json:"appointmentId,omitempty"`
	DoctorName    string     `json:"doctorName,omitempty"`
	PatientName   string     `json:"patientName,omitempty"`
	Diagnosis     string     `json:"diagnosis,omitempty"`
	Medications   []Document `json:"medications,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

type HealthTip struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
}

type HealthStatus struct {
	Status     string   `json:"status"`
	Components Document `json:"components,omitempty"`
}

// PredictionRequest is merged with Extra into a flat JSON body.
type PredictionRequest struct {
	Symptoms []string
	Method   string
	Extra    map[string]any
}
