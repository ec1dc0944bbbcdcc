package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/shopmesh/commerce-api/internal/core/domain"
	"github.com/shopmesh/commerce-api/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// UserService implements the administrative account operations.
type UserService struct {
	repo   ports.UserRepository
	logger zerolog.Logger
}

func NewUserService(repo ports.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) ListUsers(ctx context.Context, input ports.ListUsersInput) (*ports.ListUsersResult, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	items, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}

	return &ports.ListUsersResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// SetActive flips the account's active flag. Deactivation blocks future
// logins; access tokens already issued remain valid until they expire.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	updated, err := s.repo.UpdateFields(ctx, id, ports.UserPatch{IsActive: &active})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", id).Bool("active", active).Msg("account status changed")
	return updated.Sanitized(), nil
}
