// Package auth mints and verifies the bearer tokens the middleware checks on
// every protected endpoint.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type ctxKey int

// ClaimsKey is the request context key the authentication middleware stores
// verified claims under.
const ClaimsKey ctxKey = 1

// Claims is the token payload. Subject holds the user id in decimal.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserID parses the subject back into the users table id.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// Keys signs and verifies tokens with a shared HS256 secret.
type Keys struct {
	secret []byte
}

func NewKeys(secret string) (*Keys, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &Keys{secret: []byte(secret)}, nil
}

// GenerateToken issues a token valid for 24 hours.
func (k *Keys) GenerateToken(userID int64, username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
		Username: username,
		Role:     role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry and returns the claims.
func (k *Keys) ParseToken(tokenStr string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return k.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}
	return claims, nil
}
