package auth

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/murexstreams/murex/internal/errors"
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 72 * time.Hour

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
}

// NewTokens creates a token authority over the shared secret.
func NewTokens(secret string) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth secret must not be empty: %w", errors.ErrInvalidConfig)
	}
	return &Tokens{secret: []byte(secret)}, nil
}

// Secret exposes the signing key for HTTP middleware.
func (t *Tokens) Secret() []byte {
	return t.secret
}

// Issue signs a session token for userID.
func (t *Tokens) Issue(userID string) (string, time.Time, error) {
	return t.issue(userID, TokenTTL)
}

func (t *Tokens) issue(userID string, ttl time.Duration) (string, time.Time, error) {
	expires := time.Now().Add(ttl)
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["user_id"] = userID
	claims["exp"] = expires.Unix()

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a session token and returns the user id it carries.
func (t *Tokens) Parse(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrNotAuthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.ErrNotAuthenticated
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errors.ErrNotAuthenticated
	}
	return userID, nil
}
