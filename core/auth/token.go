package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"musicshare/core/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of a session token unless configured.
const DefaultTokenTTL = 30 * time.Minute

// ErrInvalidToken is returned for every token that fails validation. Parse
// details are deliberately dropped.
var ErrInvalidToken = fmt.Errorf("%w: could not validate credentials", apperr.ErrUnauthorized)

var ErrEmptySecret = errors.New("token secret must not be empty")

// Claims is the payload of a session token.
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Subject identifies whom a token is issued to.
type Subject struct {
	UserID   int64
	Username string
}

// Revoker keeps the ids of tokens that were invalidated before their expiry.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenService issues and validates HS256 signed session tokens.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	revoker Revoker
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithRevoker enables revocation checks on Validate.
func WithRevoker(r Revoker) TokenOption {
	return func(s *TokenService) { s.revoker = r }
}

// NewTokenService creates a token service. A non-positive ttl means DefaultTokenTTL.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of newly issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the subject, valid for the configured TTL.
func (s *TokenService) Issue(_ context.Context, sub Subject) (string, time.Time, error) {
	if sub.UserID <= 0 || sub.Username == "" {
		return "", time.Time{}, fmt.Errorf("cannot issue token for incomplete subject %q", sub.Username)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		UserID: sub.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Validate checks signature, expiry and required claims, and returns the
// embedded claims. Only a failing revocation lookup yields an error other
// than ErrInvalidToken.
func (s *TokenService) Validate(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}

	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// Revoke invalidates a validated token until its expiry. Without a Revoker it
// is a no-op and the token stays valid until it expires.
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if s.revoker == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// RevocationEnabled reports whether tokens can be revoked before expiry.
func (s *TokenService) RevocationEnabled() bool {
	return s.revoker != nil
}
