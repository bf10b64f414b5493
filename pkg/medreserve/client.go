// Package medreserve exposes the MedReserve backend as typed services on top
// of the authenticated client core.
package medreserve

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/medreserve/medreserve-client/pkg/apiclient"
	"github.com/medreserve/medreserve-client/pkg/session"
)

// DefaultUploadsPerMinute mirrors the backend upload quota.
const DefaultUploadsPerMinute = 10

type service struct {
	client *Client
}

type Option func(*Client)

// WithUploadsPerMinute throttles report uploads on the client side. Zero
// disables the throttle.
func WithUploadsPerMinute(n int) Option {
	return func(c *Client) {
		c.uploads = newUploadLimiter(n)
	}
}

// Client groups the backend services. Services share the underlying
// apiclient.Client and therefore its session and refresh state.
type Client struct {
	api     *apiclient.Client
	uploads *rate.Limiter

	common service

	Auth          *AuthService
	Doctors       *DoctorService
	Appointments  *AppointmentService
	Reports       *ReportService
	Prescriptions *PrescriptionService
	AI            *AIService
	Prediction    *PredictionService
	Admin         *AdminService
	Health        *HealthService
	Tips          *TipService
}

func New(api *apiclient.Client, opts ...Option) *Client {
	c := &Client{
		api:     api,
		uploads: newUploadLimiter(DefaultUploadsPerMinute),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.common.client = c
	c.Auth = (*AuthService)(&c.common)
	c.Doctors = (*DoctorService)(&c.common)
	c.Appointments = (*AppointmentService)(&c.common)
	c.Reports = (*ReportService)(&c.common)
	c.Prescriptions = (*PrescriptionService)(&c.common)
	c.AI = (*AIService)(&c.common)
	c.Prediction = (*PredictionService)(&c.common)
	c.Admin = (*AdminService)(&c.common)
	c.Health = (*HealthService)(&c.common)
	c.Tips = (*TipService)(&c.common)

	return c
}

func (c *Client) API() *apiclient.Client {
	return c.api
}

func (c *Client) Sessions() *session.Manager {
	return c.api.Sessions()
}

func newUploadLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}
