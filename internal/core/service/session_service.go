package service

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopmesh/commerce-api/internal/core/domain"
	"github.com/shopmesh/commerce-api/internal/core/password"
	"github.com/shopmesh/commerce-api/internal/core/ports"
	"github.com/shopmesh/commerce-api/internal/core/token"
)

// LoginLimiter abstracts the brute-force throttle (Redis). Limiter faults are
// logged and ignored — a degraded Redis never blocks logins.
type LoginLimiter interface {
	TooManyFailures(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// SessionService implements ports.SessionService: registration, credential
// verification, dual-token issuance, rotation on refresh, and revocation on
// logout. At most one refresh token is outstanding per user; every login and
// every refresh overwrites the stored value, invalidating its predecessor.
type SessionService struct {
	repo    ports.UserRepository
	hasher  *password.Hasher
	tokens  *token.Issuer
	limiter LoginLimiter
	audit   ports.AuditSink
	logger  zerolog.Logger
}

func NewSessionService(
	repo ports.UserRepository,
	hasher *password.Hasher,
	tokens *token.Issuer,
	limiter LoginLimiter,
	audit ports.AuditSink,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
		audit:   audit,
		logger:  logger,
	}
}

func (s *SessionService) Register(ctx context.Context, input ports.RegisterInput) (*ports.Session, error) {
	email := domain.NormalizeEmail(input.Email)

	// Existence check before hashing so a duplicate never pays bcrypt cost.
	// Concurrent registrations slipping past this check are caught by the
	// unique email index at insert time.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.repo.Insert(ctx, &domain.User{
		Name:            input.Name,
		Email:           email,
		PasswordHash:    hash,
		Role:            domain.RoleUser,
		IsActive:        true,
		IsEmailVerified: false,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	// Verification delivery is an external concern; the token is logged only.
	if verify, err := randomToken(32); err == nil {
		s.logger.Info().
			Str("user_id", created.ID).
			Str("email", email).
			Str("verification_token", verify).
			Msg("email verification token issued")
	}

	access, refresh, err := s.issuePair(created)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateFields(ctx, created.ID, ports.UserPatch{RefreshToken: &refresh})
	if err != nil {
		return nil, err
	}

	s.record(created.ID, email, domain.ActionRegistered, "")
	s.logger.Info().Str("user_id", created.ID).Msg("user registered")

	return &ports.Session{User: updated.Sanitized(), AccessToken: access, RefreshToken: refresh}, nil
}

func (s *SessionService) Login(ctx context.Context, email, plaintext string) (*ports.Session, error) {
	email = domain.NormalizeEmail(email)

	throttled, err := s.limiter.TooManyFailures(ctx, email)
	if err != nil {
		s.logger.Warn().Err(err).Msg("login limiter unavailable")
	}
	if throttled {
		s.record("", email, domain.ActionLoginThrottled, "")
		return nil, domain.ErrTooManyLoginAttempts
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same error as a wrong password so responses cannot be used to
			// enumerate registered emails.
			s.loginFailed(ctx, email, "unknown_email")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		s.loginFailed(ctx, email, "wrong_password")
		return nil, domain.ErrInvalidCredentials
	}

	// Checked only after the credential match so the deactivated response
	// does not leak account existence to callers without the password.
	if !user.IsActive {
		s.record(user.ID, email, domain.ActionLoginFailed, "deactivated")
		return nil, domain.ErrAccountDeactivated
	}

	access, refresh, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	// Overwriting the stored refresh token silently invalidates any other
	// active session for this user.
	now := time.Now().UTC()
	updated, err := s.repo.UpdateFields(ctx, user.ID, ports.UserPatch{
		RefreshToken: &refresh,
		LastLoginAt:  &now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn().Err(err).Msg("login limiter reset failed")
	}
	s.record(user.ID, email, domain.ActionLoginSucceeded, "")

	return &ports.Session{User: updated.Sanitized(), AccessToken: access, RefreshToken: refresh}, nil
}

// Logout is best-effort: a garbage, expired, or orphaned refresh token still
// results in a successful logout for the caller.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	claims, err := s.tokens.Verify(token.KindRefresh, refreshToken)
	if err != nil {
		s.logger.Debug().Msg("logout with undecodable refresh token")
		return
	}

	cleared := ""
	if _, err := s.repo.UpdateFields(ctx, claims.Subject, ports.UserPatch{RefreshToken: &cleared}); err != nil {
		s.logger.Debug().Err(err).Str("user_id", claims.Subject).Msg("logout token cleanup skipped")
		return
	}
	s.record(claims.Subject, "", domain.ActionLoggedOut, "")
}

func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*ports.Session, error) {
	claims, err := s.tokens.Verify(token.KindRefresh, refreshToken)
	if err != nil {
		s.record("", "", domain.ActionRefreshRejected, "verification_failed")
		return nil, domain.ErrRefreshTokenInvalid
	}

	user, err := s.repo.FindByID(ctx, claims.Subject, ports.ProjectionFull)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.record(claims.Subject, "", domain.ActionRefreshRejected, "unknown_subject")
			return nil, domain.ErrRefreshTokenInvalid
		}
		return nil, err
	}

	// The stored value must match the presented token exactly. This single
	// check is what makes rotation effective: a token superseded by a later
	// login or refresh is still signature-valid and unexpired, but no longer
	// matches.
	if user.RefreshToken != refreshToken {
		s.record(user.ID, user.Email, domain.ActionRefreshRejected, "superseded")
		return nil, domain.ErrRefreshTokenInvalid
	}

	access, next, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RotateRefreshToken(ctx, user.ID, refreshToken, next); err != nil {
		if errors.Is(err, domain.ErrRefreshTokenMismatch) {
			// Lost the race against a concurrent refresh with the same token.
			s.record(user.ID, user.Email, domain.ActionRefreshRejected, "rotation_race")
			return nil, domain.ErrRefreshTokenInvalid
		}
		return nil, err
	}
	s.record(user.ID, user.Email, domain.ActionTokenRefreshed, "")

	return &ports.Session{User: user.Sanitized(), AccessToken: access, RefreshToken: next}, nil
}

// Authenticate is the verification primitive consumed by the request
// authenticator on every protected request.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token.KindAccess, accessToken)
	if err != nil {
		return nil, err
	}

	// The active flag is deliberately not re-checked here: deactivation
	// blocks new logins but does not revoke access tokens already in flight.
	user, err := s.repo.FindByID(ctx, claims.Subject, ports.ProjectionPublic)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Subject deleted between issuance and use.
			return nil, token.ErrInvalid
		}
		return nil, err
	}
	return user, nil
}

func (s *SessionService) issuePair(user *domain.User) (access, refresh string, err error) {
	access, err = s.tokens.Issue(token.KindAccess, user.ID, user.Role)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.tokens.Issue(token.KindRefresh, user.ID, "")
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *SessionService) loginFailed(ctx context.Context, email, reason string) {
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.logger.Warn().Err(err).Msg("login limiter record failed")
	}
	s.record("", email, domain.ActionLoginFailed, reason)
}

func (s *SessionService) record(subject, email string, action domain.AuthAction, reason string) {
	s.audit.Enqueue(domain.AuthEvent{
		Subject:   subject,
		Email:     email,
		Action:    action,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = tokenAlphabet[int(b[i])%len(tokenAlphabet)]
	}
	return string(b), nil
}
