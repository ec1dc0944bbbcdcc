package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopmesh/commerce-api/internal/api/metrics"
	"github.com/shopmesh/commerce-api/internal/core/domain"
	"github.com/shopmesh/commerce-api/internal/core/ports"
)

// AuthHandler exposes the session endpoints and owns the cookie transport:
// tokens are minted by the session service and travel exclusively in the
// cookies set here.
type AuthHandler struct {
	sessions ports.SessionService
	cookies  CookiePolicy
}

func NewAuthHandler(sessions ports.SessionService, cookies CookiePolicy) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookies: cookies}
}

// Register creates a new account and opens a session.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.sessions.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registerResult(err)).Inc()
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues("created").Inc()

	h.cookies.setSession(c, session.AccessToken, session.RefreshToken)
	return c.JSON(http.StatusCreated, authResponse{User: session.User, AccessToken: session.AccessToken})
}

// Login verifies credentials and opens a session, rotating any refresh token
// a previous session may still hold.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.sessions.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	h.cookies.setSession(c, session.AccessToken, session.RefreshToken)
	return c.JSON(http.StatusOK, authResponse{User: session.User, AccessToken: session.AccessToken})
}

// Logout ends the session. It always succeeds and always clears the session
// cookies, even when the request carried none or carried garbage.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(cookieRefreshToken); err == nil && cookie.Value != "" {
		h.sessions.Logout(c.Request().Context(), cookie.Value)
	}

	h.cookies.clearSession(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// Refresh rotates the refresh token and mints a new access token. The new
// refresh token is returned only as a cookie, never in the body.
//
// @Summary      Refresh the session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  refreshResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(cookieRefreshToken)
	if err != nil || cookie.Value == "" {
		metrics.TokenRefreshesTotal.WithLabelValues("missing").Inc()
		return domain.ErrNoRefreshToken
	}

	session, err := h.sessions.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("rejected").Inc()
		if errors.Is(err, domain.ErrRefreshTokenInvalid) {
			// The session is gone; take the cookies with it.
			h.cookies.clearSession(c)
		}
		return err
	}
	metrics.TokenRefreshesTotal.WithLabelValues("rotated").Inc()

	h.cookies.setSession(c, session.AccessToken, session.RefreshToken)
	return c.JSON(http.StatusOK, refreshResponse{AccessToken: session.AccessToken})
}

func registerResult(err error) string {
	if errors.Is(err, domain.ErrEmailTaken) {
		return "duplicate_email"
	}
	return "error"
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "deactivated"
	case errors.Is(err, domain.ErrTooManyLoginAttempts):
		return "throttled"
	default:
		return "error"
	}
}
