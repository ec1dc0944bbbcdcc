package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	cookieAccessToken  = "accessToken"
	cookieRefreshToken = "refreshToken"
	// cookieLegacyToken predates the dual-token scheme. It is always cleared
	// and never set.
	cookieLegacyToken = "token"
)

// refreshCookiePath scopes the refresh cookie to the one endpoint that may
// consume it; browsers never attach it anywhere else.
const refreshCookiePath = "/v1/auth/refresh"

// CookiePolicy fixes how session tokens travel in cookies. It is derived from
// the environment once at startup: production gets secure, cross-site
// cookies, development keeps same-site over plain HTTP.
type CookiePolicy struct {
	Secure     bool
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewCookiePolicy(production bool, accessTTL, refreshTTL time.Duration) CookiePolicy {
	sameSite := http.SameSiteLaxMode
	if production {
		sameSite = http.SameSiteNoneMode
	}
	return CookiePolicy{
		Secure:     production,
		SameSite:   sameSite,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	}
}

// setSession writes both token cookies and removes the legacy one.
func (p CookiePolicy) setSession(c echo.Context, accessToken, refreshToken string) {
	c.SetCookie(p.cookie(cookieAccessToken, accessToken, "/", p.AccessTTL))
	c.SetCookie(p.cookie(cookieRefreshToken, refreshToken, refreshCookiePath, p.RefreshTTL))
	c.SetCookie(p.expired(cookieLegacyToken, "/"))
}

// clearSession expires all session cookies, the legacy name included. Safe to
// call when no cookies were present in the request.
func (p CookiePolicy) clearSession(c echo.Context) {
	c.SetCookie(p.expired(cookieAccessToken, "/"))
	c.SetCookie(p.expired(cookieRefreshToken, refreshCookiePath))
	c.SetCookie(p.expired(cookieLegacyToken, "/"))
}

func (p CookiePolicy) cookie(name, value, path string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

func (p CookiePolicy) expired(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}
