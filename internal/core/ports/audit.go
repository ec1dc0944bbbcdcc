package ports

import (
	"context"

	"github.com/shopmesh/commerce-api/internal/core/domain"
)

// AuditSink accepts authentication events for asynchronous recording.
// Recording is fire-and-forget: the session flow never blocks on it.
type AuditSink interface {
	Enqueue(event domain.AuthEvent)
}

// AuditService processes a single queued event.
type AuditService interface {
	Process(ctx context.Context, event domain.AuthEvent) error
}

// AuditRepository persists authentication events.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuthEvent) error
}
