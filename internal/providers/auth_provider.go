package providers

import (
	"errors"
	"github.com/golang-jwt/jwt/v4"
	"net/http"
	"strings"
	"time"
	"viewguard/internal/structures"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

var ErrAuthNotConfigured = errors.New("auth: jwt secret not configured")

// Session is the authenticated viewer. A nil session means a guest.
type Session struct {
	UserID string
}

type AuthProviderInterface interface {
	Auth(r *http.Request) *Session
	Issue(userID string, ttl time.Duration) (string, error)
}

type JWTAuthProvider struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthProvider(conf *structures.Config, logger Logger) AuthProviderInterface {
	if strings.TrimSpace(conf.Auth.JWTSecret) == "" {
		logger.Warnf(TypeApp, "Auth secret not configured, every viewer is treated as a guest")
		return &noopAuth{}
	}
	return &JWTAuthProvider{
		secret: []byte(conf.Auth.JWTSecret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Auth resolves the bearer token on r. Missing, expired or forged tokens
// yield a guest session rather than an error.
func (a *JWTAuthProvider) Auth(r *http.Request) *Session {
	h := r.Header.Get(authHeader)
	if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return nil
	}
	raw := strings.TrimSpace(h[len(bearerPrefix):])
	if raw == "" {
		return nil
	}

	var claims jwt.RegisteredClaims
	token, err := a.parser.ParseWithClaims(raw, &claims, func(_ *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil
	}
	return &Session{UserID: claims.Subject}
}

// Issue signs an HS256 token for userID. Used by tooling and tests.
func (a *JWTAuthProvider) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

type noopAuth struct{}

func (n *noopAuth) Auth(_ *http.Request) *Session { return nil }
func (n *noopAuth) Issue(_ string, _ time.Duration) (string, error) {
	return "", ErrAuthNotConfigured
}
