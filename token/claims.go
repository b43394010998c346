// Package token extracts claims from access tokens issued by the auth backend.
// The client never validates signatures (that is the backend's and the resource
// servers' job); it only reads expiry and identity claims to drive the local
// session lifecycle.
package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims is the subset of access-token claims the session layer cares about.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

type rawClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Parse decodes the token without verifying its signature and returns the
// session-relevant claims. Opaque (non-JWT) tokens return an error; callers
// fall back to the expiry reported by the transport.
func Parse(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("[token.Parse] empty token")
	}

	var claims rawClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return nil, errors.Wrap(err, "[token.Parse] ParseUnverified")
	}

	out := &Claims{
		Subject: claims.Subject,
		Email:   claims.Email,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// Expiry returns the token's exp claim, or fallback when the token is opaque
// or carries no expiry.
func Expiry(raw string, fallback time.Time) time.Time {
	claims, err := Parse(raw)
	if err != nil || claims.ExpiresAt.IsZero() {
		return fallback
	}
	return claims.ExpiresAt
}
