// Package token issues and verifies the signed, time-bounded access and
// refresh tokens. The two kinds are structurally identical JWTs but are
// signed with distinct secrets, so compromise of one secret does not allow
// forging the other kind.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects which secret and lifetime a token is bound to.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Verification failures are split in two: callers branch differently on them.
// An expired token means the client should refresh; an invalid one means it
// must fully re-authenticate.
var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Claims are the payload carried by both token kinds. Role is set on access
// tokens only.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the per-kind secrets and lifetimes, read once at startup.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Issuer creates and verifies tokens with HS256.
type Issuer struct {
	cfg Config
	now func() time.Time
}

func NewIssuer(cfg Config) *Issuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Issuer{cfg: cfg, now: time.Now}
}

// Issue signs a token of the given kind for subject. role is embedded only in
// access tokens.
func (i *Issuer) Issue(kind Kind, subject, role string) (string, error) {
	now := i.now().UTC()
	// The jti keeps every issued token unique; without it two tokens minted
	// for the same subject within the same second would be byte-identical,
	// which would defeat refresh rotation.
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl(kind))),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if kind == KindAccess {
		claims.Role = role
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret(kind))
}

// Verify decodes and validates a token of the given kind. A token signed with
// the other kind's secret fails signature validation and surfaces as
// ErrInvalid, never ErrExpired.
func (i *Issuer) Verify(kind Kind, tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.secret(kind), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

// TTL reports the configured lifetime for a kind; the cookie layer uses it to
// align cookie max-age with token expiry.
func (i *Issuer) TTL(kind Kind) time.Duration {
	return i.ttl(kind)
}

func (i *Issuer) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return i.cfg.RefreshTTL
	}
	return i.cfg.AccessTTL
}

func (i *Issuer) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return []byte(i.cfg.RefreshSecret)
	}
	return []byte(i.cfg.AccessSecret)
}
