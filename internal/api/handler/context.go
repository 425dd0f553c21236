package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// ctxUserKey is where the Auth middleware stores the resolved *domain.User.
const ctxUserKey = "user"

// SetUser stores the authenticated user on the request context.
func SetUser(c echo.Context, u *domain.User) {
	c.Set(ctxUserKey, u)
}

// CurrentUser returns the user injected by the Auth middleware. Reaching a
// protected handler without one means the route was mounted without Auth.
func CurrentUser(c echo.Context) (*domain.User, error) {
	u, ok := c.Get(ctxUserKey).(*domain.User)
	if !ok || u == nil {
		return nil, domain.ErrUnauthorized
	}
	return u, nil
}
