package medreserve

import (
	"context"
	"fmt"
)

// AdminService requires the ADMIN role. Other roles get
// *serviceerr.AuthorizationError.
type AdminService service

func (s *AdminService) Users(ctx context.Context, opts *ListOptions) (Page[Document], error) {
	var page Page[Document]
	err := s.client.api.Get(ctx, "/admin/users", opts.values(), &page)

	return page, err
}

func (s *AdminService) Doctors(ctx context.Context, opts *ListOptions) (Page[Document], error) {
	var page Page[Document]
	err := s.client.api.Get(ctx, "/admin/doctors", opts.values(), &page)

	return page, err
}

func (s *AdminService) SystemHealth(ctx context.Context) (Document, error) {
	var doc Document
	err := s.client.api.Get(ctx, "/admin/system-health", nil, &doc)

	return doc, err
}

func (s *AdminService) UpdateUserStatus(ctx context.Context, userID int64, status string) (Document, error) {
	var doc Document
	err := s.client.api.Put(ctx, fmt.Sprintf("/admin/users/%d/status", userID), map[string]string{"status": status}, &doc)

	return doc, err
}
