package domain

import "errors"

// Sentinel errors for the authentication core. The API layer maps each of
// these to a deterministic HTTP status, machine-readable code, and — for the
// token errors — a client action signal (refresh vs. re-authenticate).
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. The two cases are deliberately merged so responses cannot be
	// used to enumerate registered emails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrEmailTaken         = errors.New("email already registered")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("access forbidden")

	// ErrNoAccessToken means the request carried no access-token cookie; the
	// client should attempt a refresh before retrying.
	ErrNoAccessToken = errors.New("missing access token")

	// ErrNoRefreshToken means the refresh endpoint was called without a
	// refresh-token cookie; the client must log in again.
	ErrNoRefreshToken = errors.New("missing refresh token")

	// ErrRefreshTokenInvalid covers every refresh failure past the missing
	// case: bad signature, expiry, unknown subject, or a token superseded by
	// a later login/refresh. The client must fully re-authenticate.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid or expired")

	// ErrRefreshTokenMismatch is returned by the store when a conditional
	// rotation finds the stored token no longer matches the presented one.
	ErrRefreshTokenMismatch = errors.New("stored refresh token mismatch")

	ErrTooManyLoginAttempts = errors.New("too many login attempts")
)
