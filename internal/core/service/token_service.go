package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

// DefaultTokenTTL is the lifetime of tokens issued at login.
const DefaultTokenTTL = 30 * time.Minute

// TokenService issues and verifies HS256-signed JWTs carrying the user email
// as subject. Verification needs no server-side state, so a token stays valid
// until it expires.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// expiryLeeway lets a token verify through the whole second named by its exp
// claim, since NumericDate carries whole seconds only.
const expiryLeeway = time.Second

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService returns a TokenService signing with secret.
func NewTokenService(secret string, opts ...TokenOption) *TokenService {
	s := &TokenService{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue returns a signed token for subject that expires ttl from now.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature and then the expiry of token and returns its subject.
// Any tampering, a foreign secret or a malformed token yields
// domain.ErrInvalidSignature; a genuine token is accepted up to and including
// its exp second and yields domain.ErrTokenExpired after that.
func (s *TokenService) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(expiryLeeway),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrInvalidSignature
	}
	if claims.Subject == "" {
		return "", domain.ErrInvalidSignature
	}
	return claims.Subject, nil
}
