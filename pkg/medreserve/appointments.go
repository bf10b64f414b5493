package medreserve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/medreserve/medreserve-client/pkg/apiclient"
)

type AppointmentService service

// List returns the signed in patient's appointments.
func (s *AppointmentService) List(ctx context.Context, opts *ListOptions) (Page[Appointment], error) {
	var page Page[Appointment]
	err := s.client.api.Get(ctx, "/appointments/patient/my-appointments", opts.values(), &page)

	return page, err
}

func (s *AppointmentService) Get(ctx context.Context, id int64) (Appointment, error) {
	var a Appointment
	err := s.client.api.Get(ctx, appointmentPath(id), nil, &a)

	return a, err
}

func (s *AppointmentService) Create(ctx context.Context, in BookingRequest) (Appointment, error) {
	return s.submit(ctx, "/appointments", in)
}

// Book reserves a slot through the patient booking flow.
func (s *AppointmentService) Book(ctx context.Context, in BookingRequest) (Appointment, error) {
	return s.submit(ctx, "/appointments/book", in)
}

func (s *AppointmentService) Update(ctx context.Context, id int64, in Appointment) (Appointment, error) {
	var a Appointment
	err := s.client.api.Put(ctx, appointmentPath(id), in, &a)

	return a, err
}

func (s *AppointmentService) Cancel(ctx context.Context, id int64, reason string) (Appointment, error) {
	req := apiclient.NewRequest(http.MethodPut, appointmentPath(id)+"/cancel").SetQuery("reason", reason)

	var a Appointment
	err := s.client.api.DoJSON(ctx, req, &a)

	return a, err
}

// Reschedule moves an appointment. The new time is sent in the backend's
// yyyy-MM-dd HH:mm format, in the location of newTime.
func (s *AppointmentService) Reschedule(ctx context.Context, id int64, newTime time.Time) (Appointment, error) {
	req := apiclient.NewRequest(http.MethodPut, appointmentPath(id)+"/reschedule").
		SetQuery("newDateTime", FormatDateTime(newTime))

	var a Appointment
	err := s.client.api.DoJSON(ctx, req, &a)

	return a, err
}

func (s *AppointmentService) AvailableSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	var slots []string
	err := s.client.api.Get(ctx, fmt.Sprintf("/appointments/doctor/%d/available-slots", doctorID), dateQuery(date), &slots)

	return slots, err
}

func (s *AppointmentService) submit(ctx context.Context, path string, in BookingRequest) (Appointment, error) {
	if err := Validate(in); err != nil {
		return Appointment{}, err
	}

	var a Appointment
	err := s.client.api.Post(ctx, path, in, &a)

	return a, err
}

func appointmentPath(id int64) string {
	return fmt.Sprintf("/appointments/%d", id)
}
