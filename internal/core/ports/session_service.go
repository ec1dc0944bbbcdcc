package ports

import (
	"context"

	"github.com/shopmesh/commerce-api/internal/core/domain"
)

// RegisterInput carries the data needed to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is the result of a successful register, login, or refresh. User is
// always sanitized. RefreshToken travels only in a transport cookie and must
// never be written into a response body.
type Session struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// SessionService orchestrates registration, credential verification,
// dual-token issuance, rotation, and revocation.
type SessionService interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)

	// Login returns domain.ErrInvalidCredentials for both an unknown email
	// and a wrong password, and domain.ErrAccountDeactivated only after the
	// credential check has passed.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Logout clears the stored refresh token for the token's subject when the
	// token decodes; any failure is swallowed. Logout never fails.
	Logout(ctx context.Context, refreshToken string)

	// Refresh rotates the refresh token: the presented token must verify AND
	// exactly match the value stored on the user record. A superseded token
	// is rejected with domain.ErrRefreshTokenInvalid even while unexpired.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)

	// Authenticate verifies an access token and resolves its subject to a
	// sanitized user record. Verification failures surface as
	// token.ErrExpired or token.ErrInvalid; a subject that no longer resolves
	// is token.ErrInvalid.
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}
