package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweetshop/inventory-service/internal/api/metrics"
	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

// AuthService implements registration, login and the authorization gate in
// front of every catalog mutation.
type AuthService struct {
	repo     ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	tokenTTL time.Duration
	logger   zerolog.Logger
}

func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	tokenTTL time.Duration,
	logger zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Register creates a user with the default role.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	return s.createUser(ctx, email, password, name, domain.RoleUser)
}

// SeedAdmin makes sure an admin account with the given email exists. An
// existing account is left as it is, whatever its role.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password, name string) error {
	_, err := s.createUser(ctx, email, password, name, domain.RoleAdmin)
	if errors.Is(err, domain.ErrDuplicateEmail) {
		s.logger.Debug().Str("email", email).Msg("admin account already present")
		return nil
	}
	return err
}

func (s *AuthService) createUser(ctx context.Context, email, password, name string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}
	if password == "" {
		return nil, domain.NewValidationError("password", "password is required")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.ID).Str("role", string(role)).Msg("user registered")
	return created, nil
}

// Authenticate returns the user owning email when password matches.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			s.logger.Info().Str("email", email).Msg("login failed")
		}
		return "", nil, err
	}

	token, err := s.tokens.Issue(user.Email, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return token, user, nil
}

// ResolveToken verifies token and loads the user it was issued to.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*domain.User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	user, err := s.repo.FindByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// RequireRole fails with domain.ErrForbidden unless user holds one of roles.
func (s *AuthService) RequireRole(user *domain.User, roles ...domain.Role) error {
	if user == nil {
		return domain.ErrUnauthorized
	}
	for _, r := range roles {
		if user.Role == r {
			return nil
		}
	}
	return domain.ErrForbidden
}
