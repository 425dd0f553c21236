package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sweetshop/inventory-service/internal/api/handler"
	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// RoleChecker decides whether a user may proceed.
type RoleChecker interface {
	RequireRole(user *domain.User, roles ...domain.Role) error
}

// RBAC enforces role-based access control. It must run after Auth.
func RBAC(checker RoleChecker, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := handler.CurrentUser(c)
			if err != nil {
				return err
			}
			if err := checker.RequireRole(user, allowedRoles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
