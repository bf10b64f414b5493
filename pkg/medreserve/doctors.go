package medreserve

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

type DoctorService service

func (s *DoctorService) List(ctx context.Context, opts *ListOptions) (Page[Doctor], error) {
	var page Page[Doctor]
	err := s.client.api.Get(ctx, "/doctors", opts.values(), &page)

	return page, err
}

func (s *DoctorService) Get(ctx context.Context, id int64) (Doctor, error) {
	var d Doctor
	err := s.client.api.Get(ctx, fmt.Sprintf("/doctors/%d", id), nil, &d)

	return d, err
}

func (s *DoctorService) BySpecialty(ctx context.Context, specialty string) ([]Doctor, error) {
	var ds []Doctor
	err := s.client.api.Get(ctx, "/doctors/specialty/"+url.PathEscape(specialty), nil, &ds)

	return ds, err
}

// AvailableSlots lists the free start times of a doctor on date.
func (s *DoctorService) AvailableSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	var slots []string
	err := s.client.api.Get(ctx, fmt.Sprintf("/doctors/%d/available-slots", doctorID), dateQuery(date), &slots)

	return slots, err
}

func (s *DoctorService) Register(ctx context.Context, in DoctorRegistration) (Doctor, error) {
	if err := Validate(in); err != nil {
		return Doctor{}, err
	}

	var d Doctor
	err := s.client.api.Post(ctx, "/doctors/register", in, &d)

	return d, err
}

func dateQuery(date time.Time) url.Values {
	return url.Values{"date": {date.Format(time.DateOnly)}}
}
