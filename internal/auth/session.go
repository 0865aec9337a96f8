package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the HttpOnly cookie set on login alongside the opaque
// token. The cookie is the session half of the dual-mode auth; the token in
// the response body is the API half.
const SessionCookieName = "session_token"

type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionManager issues and validates the signed session cookie values.
type SessionManager struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func NewSessionManager(secret string, expiry time.Duration, issuer string) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

func (m *SessionManager) Expiry() time.Duration {
	return m.expiry
}

// Issue creates a session value for the given user id.
func (m *SessionManager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", ErrInvalidToken
	}

	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a session value and returns the user id it names.
func (m *SessionManager) Validate(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
