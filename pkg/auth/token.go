package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// MinSecretLength is the shortest signing secret the service accepts
	MinSecretLength = 32
	// DefaultTokenTTL is the lifetime of every issued token
	DefaultTokenTTL = 24 * time.Hour
	// DefaultIssuer is written into the iss claim
	DefaultIssuer = "taskforge"
)

var (
	// ErrTokenExpired is returned when a token is past its expiry
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned when the signature or structure is invalid
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenRevoked is returned when a token was revoked at logout
	ErrTokenRevoked = errors.New("token revoked")
	// ErrWeakSecret is returned when the signing secret is missing or too short
	ErrWeakSecret = fmt.Errorf("signing secret must be at least %d characters", MinSecretLength)
)

// Claims is the token payload. Only the subject and the admin flag carry
// identity; team roles are never embedded.
type Claims struct {
	IsAdmin bool `json:"isAdmin"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed identity tokens
type TokenService struct {
	secret      []byte
	ttl         time.Duration
	issuer      string
	now         func() time.Time
	revocations RevocationList
}

// TokenOption configures a TokenService
type TokenOption func(*TokenService)

// WithClock overrides the time source
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRevocationList enables logout revocation checks
func WithRevocationList(list RevocationList) TokenOption {
	return func(s *TokenService) {
		s.revocations = list
	}
}

// ValidateSecret checks the signing secret startup invariant
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return ErrWeakSecret
	}
	return nil
}

// NewTokenService creates a token service. It fails when the secret is weak.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if err := ValidateSecret(secret); err != nil {
		return nil, err
	}

	s := &TokenService{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subjectID. exp is exactly iat + TTL.
func (s *TokenService) Issue(subjectID string, isAdmin bool) (string, *Claims, error) {
	if subjectID == "" {
		return "", nil, fmt.Errorf("subject id is required")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	claims := &Claims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, claims, nil
}

// Verify parses and validates a token. It fails with ErrTokenExpired,
// ErrTokenMalformed or ErrTokenRevoked and never consults user records.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}

	if s.revocations != nil && claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Revoke denies the token identified by claims until it would have expired
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if s.revocations == nil || claims == nil || claims.ID == "" {
		return nil
	}
	until := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return s.revocations.Revoke(ctx, claims.ID, until)
}
