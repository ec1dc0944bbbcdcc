package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shopmesh/commerce-api/internal/core/domain"
	"github.com/shopmesh/commerce-api/internal/core/ports"
)

// AuditLogService persists queued authentication events. It runs inside the
// dispatcher workers, off the request path.
type AuditLogService struct {
	repo   ports.AuditRepository
	logger zerolog.Logger
}

func NewAuditLogService(repo ports.AuditRepository, logger zerolog.Logger) *AuditLogService {
	return &AuditLogService{repo: repo, logger: logger}
}

func (s *AuditLogService) Process(ctx context.Context, event domain.AuthEvent) error {
	if event.Action == "" {
		return fmt.Errorf("audit event without action")
	}

	if err := s.repo.Insert(ctx, &event); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}

	s.logger.Debug().
		Str("action", string(event.Action)).
		Str("subject", event.Subject).
		Msg("auth event recorded")
	return nil
}
