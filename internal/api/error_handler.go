package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shopmesh/commerce-api/internal/core/domain"
	"github.com/shopmesh/commerce-api/internal/core/token"
)

// Client action signals. This distinction is the most important contract the
// API has with its clients: "refresh" means retry the request after a token
// refresh, "reauthenticate" means drop the session and log in again.
const (
	ActionRefresh        = "refresh"
	ActionReauthenticate = "reauthenticate"
)

// errorResponse is the canonical error envelope for all API errors. Code is a
// stable machine-readable identifier; Action, when present, tells the client
// how to recover.
type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Action string `json:"action,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain and token errors to deterministic HTTP status codes,
//     stable machine codes, and a refresh/reauthenticate action signal.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from the router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := ""
		if he.Code == http.StatusBadRequest || he.Code == http.StatusUnprocessableEntity {
			code = "VALIDATION_ERROR"
		}
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: code}
	}

	switch {
	// Request authenticator outcomes. Expired tokens invite a refresh;
	// malformed or forged ones must not, so probing cannot legitimize itself
	// through the refresh flow.
	case errors.Is(err, domain.ErrNoAccessToken):
		return http.StatusUnauthorized, errorResponse{Error: "missing access token", Code: "ACCESS_TOKEN_MISSING", Action: ActionRefresh}
	case errors.Is(err, token.ErrExpired):
		return http.StatusUnauthorized, errorResponse{Error: "access token expired", Code: "ACCESS_TOKEN_EXPIRED", Action: ActionRefresh}
	case errors.Is(err, token.ErrInvalid):
		return http.StatusUnauthorized, errorResponse{Error: "invalid access token", Code: "ACCESS_TOKEN_INVALID", Action: ActionReauthenticate}

	// Refresh endpoint outcomes.
	case errors.Is(err, domain.ErrNoRefreshToken):
		return http.StatusUnauthorized, errorResponse{Error: "missing refresh token", Code: "REFRESH_TOKEN_MISSING", Action: ActionReauthenticate}
	case errors.Is(err, domain.ErrRefreshTokenInvalid):
		return http.StatusForbidden, errorResponse{Error: "refresh token invalid or expired", Code: "REFRESH_TOKEN_INVALID", Action: ActionReauthenticate}

	// Session manager outcomes.
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials", Code: "INVALID_CREDENTIALS"}
	case errors.Is(err, domain.ErrAccountDeactivated):
		return http.StatusForbidden, errorResponse{Error: "account deactivated", Code: "ACCOUNT_DEACTIVATED"}
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, errorResponse{Error: "email already registered", Code: "EMAIL_TAKEN"}
	case errors.Is(err, domain.ErrTooManyLoginAttempts):
		return http.StatusTooManyRequests, errorResponse{Error: "too many login attempts", Code: "TOO_MANY_ATTEMPTS"}

	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "access forbidden", Code: "FORBIDDEN"}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Error: "user not found", Code: "USER_NOT_FOUND"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL"}
}
