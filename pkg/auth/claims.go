// Package auth carries the backend access token through ekaya-console.
// Tokens are issued and verified by the analysis backend; the console only
// forwards them and reads their claims for logging.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// TokenKey is the context key for storing the raw access token string.
	TokenKey contextKey = "token"
)

// Claims are the fields the console reads from a backend access token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// ParseUnverified decodes token without checking its signature. Use it only
// for logging and expiry warnings; the backend verifies every request.
func ParseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// ExpiresWithin reports whether the claims expire within d of now.
// Tokens without an expiry never expire.
func (c *Claims) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Time.Before(now.Add(d))
}

// WithToken returns a copy of ctx carrying token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// GetToken retrieves the raw token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok && token != ""
}

// ErrNoToken is returned when neither the request nor the configuration
// provides an access token.
var ErrNoToken = errors.New("no access token available")
