// Package auth issues and validates the platform's JWT access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Roles carried in the token's role claim.
const (
	RoleWorker    = "worker"
	RoleRequester = "requester"
	RoleAdmin     = "admin"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the platform JWT payload: the subject is the user ID and the role
// gates route groups.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and parses HMAC tokens.
type JWTManager struct {
	secret        []byte
	tokenLifetime time.Duration
}

func NewJWTManager(secret string, tokenLifetime time.Duration) (*JWTManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters long")
	}
	if tokenLifetime <= 0 {
		tokenLifetime = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), tokenLifetime: tokenLifetime}, nil
}

// GenerateToken issues a signed token for the user.
func (m *JWTManager) GenerateToken(userID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates the token signature and expiry and returns its claims.
func (m *JWTManager) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
