package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// UserRepository keeps users in a map keyed by email.
type UserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
	nextID  int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byEmail: make(map[string]domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return nil, domain.ErrDuplicateEmail
	}
	r.nextID++
	clone := *user
	clone.ID = strconv.FormatInt(r.nextID, 10)
	r.byEmail[clone.Email] = clone
	return &clone, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}
