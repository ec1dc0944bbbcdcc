package ports

import (
	"context"

	"github.com/shopmesh/commerce-api/internal/core/domain"
)

// ListUsersInput carries pagination parameters for the admin listing.
type ListUsersInput struct {
	Page  int
	Limit int
}

// ListUsersResult is a page of sanitized users.
type ListUsersResult struct {
	Items      []domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UserService exposes the administrative account operations.
type UserService interface {
	ListUsers(ctx context.Context, input ListUsersInput) (*ListUsersResult, error)

	// SetActive flips the active flag. Deactivation blocks future logins but
	// does not revoke access tokens already in flight.
	SetActive(ctx context.Context, id string, active bool) (*domain.User, error)
}
