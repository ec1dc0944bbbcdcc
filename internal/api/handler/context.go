package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopmesh/commerce-api/internal/core/domain"
)

// currentUser extracts the identity the Auth middleware attached to the
// request. Its absence means the route was wired without the middleware —
// fail closed rather than panic.
func currentUser(c echo.Context) (*domain.User, error) {
	user, _ := c.Get("user").(*domain.User)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication identity")
	}
	return user, nil
}
