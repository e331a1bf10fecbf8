package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewTokenService(t *testing.T) {
	t.Run("rejects missing secret", func(t *testing.T) {
		_, err := NewTokenService("")
		assert.ErrorIs(t, err, ErrWeakSecret)
	})

	t.Run("rejects short secret", func(t *testing.T) {
		_, err := NewTokenService(strings.Repeat("x", MinSecretLength-1))
		assert.ErrorIs(t, err, ErrWeakSecret)
	})

	t.Run("accepts secret of minimum length", func(t *testing.T) {
		svc, err := NewTokenService(strings.Repeat("x", MinSecretLength))
		require.NoError(t, err)
		assert.Equal(t, DefaultTokenTTL, svc.TTL())
	})
}

func TestTokenService_IssueVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 15, 500, time.UTC)
	svc, err := NewTokenService(testSecret, WithClock(fixedClock(now)))
	require.NoError(t, err)

	token, issued, err := svc.Issue("user-1", true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.Subject)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, 24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokenService_IssueRequiresSubject(t *testing.T) {
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)

	_, _, err = svc.Issue("", false)
	assert.Error(t, err)
}

func TestTokenService_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-25 * time.Hour)
	issuer, err := NewTokenService(testSecret, WithClock(fixedClock(issuedAt)))
	require.NoError(t, err)
	verifier, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, _, err := issuer.Issue("user-1", false)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_Malformed(t *testing.T) {
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)
	token, _, err := svc.Issue("user-1", false)
	require.NoError(t, err)

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)

		raw, err := base64.RawURLEncoding.DecodeString(parts[1])
		require.NoError(t, err)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &payload))
		payload["isAdmin"] = true
		forged, err := json.Marshal(payload)
		require.NoError(t, err)
		parts[1] = base64.RawURLEncoding.EncodeToString(forged)

		_, err = svc.Verify(context.Background(), strings.Join(parts, "."))
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("signed with another secret", func(t *testing.T) {
		other, err := NewTokenService(strings.Repeat("z", 40))
		require.NoError(t, err)
		foreign, _, err := other.Issue("user-1", false)
		require.NoError(t, err)

		_, err = svc.Verify(context.Background(), foreign)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("unsigned algorithm", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Verify(context.Background(), none)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})
}

func TestTokenService_Revoke(t *testing.T) {
	list := NewMemoryRevocationList(16, time.Hour)
	svc, err := NewTokenService(testSecret, WithRevocationList(list))
	require.NoError(t, err)

	token, claims, err := svc.Issue("user-1", false)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), claims))

	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
