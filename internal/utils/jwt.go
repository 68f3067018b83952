// Package utils provides general-purpose helper utilities
// used across different parts of the application.
// Includes tools for inspecting JWT token expiry, generating
// UUID identifiers, and other common operations.
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the exp claim from a JWT without verifying the
// signature. The client never validates server-issued tokens, it only needs
// to know when to refresh them. Returns an error when the token cannot be
// parsed or carries no expiry.
func TokenExpiry(tokenString string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("error occurred parsing token: %w", err)
	}

	expiry, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("error occurred reading token expiry: %w", err)
	}
	if expiry == nil {
		return time.Time{}, errors.New("token carries no expiry claim")
	}

	return expiry.Time, nil
}
