package ports

import (
	"context"
	"time"

	"github.com/shopmesh/commerce-api/internal/core/domain"
)

// Projection selects which fields FindByID loads from the store.
type Projection int

const (
	// ProjectionPublic omits the credential hash and stored refresh token.
	ProjectionPublic Projection = iota
	// ProjectionFull loads the complete record, sensitive fields included.
	ProjectionFull
)

// UserPatch is an explicit field-level update. Nil pointers leave the
// corresponding field untouched; a pointer to the zero value clears it
// (an empty RefreshToken string removes the stored token).
type UserPatch struct {
	RefreshToken *string
	LastLoginAt  *time.Time
	IsActive     *bool
}

// UserRepository is the credential-store contract. Updates are last-write-wins
// except RotateRefreshToken, which is conditional on the currently stored
// token value.
type UserRepository interface {
	// Insert persists a new user and returns the stored record with its
	// generated ID. A uniqueness violation on email yields
	// domain.ErrEmailTaken, which backstops the pre-insert existence check
	// under concurrent registrations.
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)

	// FindByEmail loads the full record for the normalized email, or
	// domain.ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	FindByID(ctx context.Context, id string, p Projection) (*domain.User, error)

	// UpdateFields applies the patch and returns the updated record.
	UpdateFields(ctx context.Context, id string, patch UserPatch) (*domain.User, error)

	// RotateRefreshToken replaces the stored refresh token with next only if
	// it still equals current. When the stored value has moved on — a
	// concurrent refresh or a later login already rotated it —
	// domain.ErrRefreshTokenMismatch is returned and nothing is written.
	RotateRefreshToken(ctx context.Context, id, current, next string) error

	// List returns a page of users (public projection) plus the total count.
	List(ctx context.Context, page, limit int) ([]domain.User, int64, error)
}
