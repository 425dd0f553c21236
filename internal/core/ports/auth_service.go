package ports

import (
	"context"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// AuthService covers registration, login and request authorization.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	ResolveToken(ctx context.Context, token string) (*domain.User, error)
	RequireRole(user *domain.User, roles ...domain.Role) error
}
