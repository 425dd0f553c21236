package ports

import (
	"context"
	"time"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// UserRepository defines the persistence operations needed for authentication.
type UserRepository interface {
	// Create stores a new user and returns it with its assigned ID.
	// It returns domain.ErrDuplicateEmail when the email is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindByEmail returns domain.ErrUserNotFound when no user matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer issues and verifies signed bearer tokens.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Verify(token string) (string, error)
}
