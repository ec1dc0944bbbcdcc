package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/shopmesh/commerce-api/internal/core/domain"
	"github.com/shopmesh/commerce-api/internal/core/ports"
)

func seedUsers(t *testing.T, repo *stubUserRepo, n int) {
	t.Helper()
	sessions := newTestSessions(repo)
	for i := 0; i < n; i++ {
		register(t, sessions, "User", string(rune('a'+i))+"@example.com", "pass12345")
	}
}

func TestUserService_ListUsers_Pagination(t *testing.T) {
	repo := newStubUserRepo()
	seedUsers(t, repo, 5)
	svc := NewUserService(repo, zerolog.Nop())

	result, err := svc.ListUsers(context.Background(), ports.ListUsersInput{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Total != 5 || result.TotalPages != 3 {
		t.Fatalf("unexpected pagination: total=%d pages=%d", result.Total, result.TotalPages)
	}
	for _, u := range result.Items {
		if u.PasswordHash != "" || u.RefreshToken != "" {
			t.Fatalf("listing must never expose sensitive fields: %+v", u)
		}
	}
}

func TestUserService_ListUsers_Defaults(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, zerolog.Nop())

	result, err := svc.ListUsers(context.Background(), ports.ListUsersInput{Page: -3, Limit: 10_000})
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if result.Page != 1 || result.Limit != maxPageLimit {
		t.Fatalf("expected clamped pagination, got page=%d limit=%d", result.Page, result.Limit)
	}
}

func TestUserService_SetActive(t *testing.T) {
	repo := newStubUserRepo()
	sessions := newTestSessions(repo)
	created := register(t, sessions, "Nora", "nora@example.com", "pass12345")
	svc := NewUserService(repo, zerolog.Nop())

	updated, err := svc.SetActive(context.Background(), created.User.ID, false)
	if err != nil {
		t.Fatalf("SetActive returned error: %v", err)
	}
	if updated.IsActive {
		t.Fatalf("expected deactivated user")
	}
	if updated.PasswordHash != "" || updated.RefreshToken != "" {
		t.Fatalf("returned user must be sanitized")
	}

	if _, err := svc.SetActive(context.Background(), "missing", false); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
