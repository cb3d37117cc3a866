// Package auth issues and verifies the bearer credentials used by the HTTP
// API, and hashes account passwords.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload carried by a catalog access token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Authorizer signs and verifies HMAC access tokens.
type Authorizer struct {
	signKey  []byte
	tokenTTL time.Duration
}

// NewAuthorizer creates an Authorizer. ttl falls back to 24 hours when zero.
func NewAuthorizer(signKey string, ttl time.Duration) (*Authorizer, error) {
	if signKey == "" {
		return nil, fmt.Errorf("auth: signing key is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authorizer{signKey: []byte(signKey), tokenTTL: ttl}, nil
}

// Generate returns a signed token for the given user.
func (a *Authorizer) Generate(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.signKey)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, rejecting unexpected signing methods
// and expired credentials.
func (a *Authorizer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.signKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: token is not valid")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	return claims, nil
}
