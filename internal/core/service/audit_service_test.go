package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopmesh/commerce-api/internal/core/domain"
)

type stubAuditRepo struct {
	inserted []domain.AuthEvent
	err      error
}

func (r *stubAuditRepo) Insert(_ context.Context, event *domain.AuthEvent) error {
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, *event)
	return nil
}

func TestAuditLogService_Process(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditLogService(repo, zerolog.Nop())

	event := domain.AuthEvent{
		Subject:   "user-1",
		Action:    domain.ActionLoginSucceeded,
		Timestamp: time.Now().UTC(),
	}
	if err := svc.Process(context.Background(), event); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(repo.inserted) != 1 || repo.inserted[0].Subject != "user-1" {
		t.Fatalf("event not persisted: %+v", repo.inserted)
	}
}

func TestAuditLogService_Process_Errors(t *testing.T) {
	svc := NewAuditLogService(&stubAuditRepo{}, zerolog.Nop())
	if err := svc.Process(context.Background(), domain.AuthEvent{}); err == nil {
		t.Fatalf("expected error for event without action")
	}

	storeErr := errors.New("store down")
	svc = NewAuditLogService(&stubAuditRepo{err: storeErr}, zerolog.Nop())
	err := svc.Process(context.Background(), domain.AuthEvent{Action: domain.ActionLoggedOut})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
