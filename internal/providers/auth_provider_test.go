package providers

import (
	"net/http/httptest"
	"testing"
	"time"
	"viewguard/internal/structures"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authConfig(secret string) *structures.Config {
	return &structures.Config{Auth: structures.AuthConfig{JWTSecret: secret}}
}

func TestJWTAuthProvider_RoundTrip(t *testing.T) {
	auth := NewAuthProvider(authConfig("s3cret"), &testLogger{})

	token, err := auth.Issue("user-7", time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	session := auth.Auth(r)
	require.NotNil(t, session)
	assert.Equal(t, "user-7", session.UserID)

	r.Header.Set("Authorization", "bearer "+token)
	assert.NotNil(t, auth.Auth(r), "scheme is case-insensitive")
}

func TestJWTAuthProvider_RejectsBadTokens(t *testing.T) {
	auth := NewAuthProvider(authConfig("s3cret"), &testLogger{})
	other := NewAuthProvider(authConfig("other"), &testLogger{})

	expired, err := auth.Issue("user-7", -time.Minute)
	require.NoError(t, err)
	forged, err := other.Issue("user-7", time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject: "user-7",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	headers := map[string]string{
		"missing":    "",
		"basic":      "Basic dXNlcjpwYXNz",
		"empty":      "Bearer ",
		"garbage":    "Bearer not.a.jwt",
		"expired":    "Bearer " + expired,
		"forged":     "Bearer " + forged,
		"no subject": "Bearer " + noSubject,
		"wrong alg":  "Bearer " + wrongAlg,
	}
	for name, h := range headers {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if h != "" {
				r.Header.Set("Authorization", h)
			}
			assert.Nil(t, auth.Auth(r))
		})
	}
}

func TestNoopAuth(t *testing.T) {
	logger := &testLogger{}
	auth := NewAuthProvider(authConfig("  "), logger)
	assert.IsType(t, &noopAuth{}, auth)
	assert.Equal(t, 1, logger.warns)

	_, err := auth.Issue("user-7", time.Hour)
	assert.ErrorIs(t, err, ErrAuthNotConfigured)
	assert.Nil(t, auth.Auth(httptest.NewRequest("GET", "/", nil)))
}
