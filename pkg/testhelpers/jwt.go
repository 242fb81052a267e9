// Package testhelpers provides utilities for testing ekaya-console components.
package testhelpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateTestJWT creates a signed HS256 token for sub expiring at exp.
// The console never verifies signatures, so the key is fixed.
func GenerateTestJWT(sub, email string, exp time.Time) string {
	claims := jwt.MapClaims{
		"sub": sub,
		"aud": "console",
		"exp": exp.Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		panic(err)
	}
	return token
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(sub, email string, exp time.Time) string {
	return "Bearer " + GenerateTestJWT(sub, email, exp)
}
