package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName identifies the web session cookie.
const CookieName = "egua_session"

const cookieTTL = 7 * 24 * time.Hour

// SessionCookie mints and verifies the signed cookie that carries the
// backend access token between browser requests. The cookie is the web
// surface's TokenPersistence.
type SessionCookie struct {
	secret []byte
}

// NewSessionCookie creates a cookie codec with the given HMAC secret.
func NewSessionCookie(secret string) (*SessionCookie, error) {
	if secret == "" {
		return nil, errors.New("cookie secret não configurado")
	}
	return &SessionCookie{secret: []byte(secret)}, nil
}

type webClaims struct {
	AccessToken string `json:"tok"`
	jwt.RegisteredClaims
}

// Mint signs a cookie value embedding the backend access token.
func (s *SessionCookie) Mint(accessToken string) (string, error) {
	claims := webClaims{
		AccessToken: accessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cookieTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies a cookie value and returns the embedded access token.
func (s *SessionCookie) Parse(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &webClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse cookie: %w", err)
	}

	claims, ok := token.Claims.(*webClaims)
	if !ok || !token.Valid || claims.AccessToken == "" {
		return "", errors.New("invalid session cookie")
	}
	return claims.AccessToken, nil
}
