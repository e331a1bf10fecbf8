package sso

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// StateCookieName holds the signed login state between redirect and callback
	StateCookieName = "taskforge_oauth_state"
	// StateTTL bounds how long a login may take at the provider
	StateTTL = 10 * time.Minute
)

// ErrInvalidState is returned when the callback state does not match the cookie
var ErrInvalidState = errors.New("invalid oauth state")

// stateSigner issues and checks signed state values
type stateSigner struct {
	secret []byte
	now    func() time.Time
}

// issue returns a fresh state and its signed cookie value
func (s *stateSigner) issue() (state, cookie string, err error) {
	state = uuid.NewString()
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        state,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
	}
	cookie, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign state: %w", err)
	}
	return state, cookie, nil
}

// check verifies that cookie is a live signature over state
func (s *stateSigner) check(state, cookie string) error {
	if state == "" || cookie == "" {
		return ErrInvalidState
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(cookie, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || claims.ID != state {
		return ErrInvalidState
	}
	return nil
}
