// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

// Package sec provides verification of provider-issued session tokens.
//
// # Architecture
//
// The identity provider owns credential storage and session issuance; this
// package never signs or mints tokens. It only verifies HS256 session JWTs
// that the provider already issued, so the gateway can answer "who am I"
// without a network round trip on every request.
package sec

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload embedded inside a provider-issued access token.
//
// # Why verify locally?
//
// The provider signs session JWTs with a shared HS256 secret. Verifying the
// signature here lets middleware reconstruct the active user context WITHOUT
// calling the provider on every single API request. The provider remains the
// sole issuer; a local verification failure always falls back to a remote
// session lookup.
type SessionClaims struct {
	jwt.RegisteredClaims

	Email       string `json:"email"`
	Role        string `json:"role"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// UserID returns the provider's user ID (the JWT subject).
func (c *SessionClaims) UserID() string { return c.Subject }

// SessionVerifier checks the signature and validity of provider session JWTs.
type SessionVerifier struct {
	secret []byte
}

// NewSessionVerifier creates a verifier for the provider's HS256 signing secret.
func NewSessionVerifier(secret string) (*SessionVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("sec: session JWT secret must not be empty")
	}
	return &SessionVerifier{secret: []byte(secret)}, nil
}

// VerifyToken checks the signature and validity of a session JWT string.
func (verifier *SessionVerifier) VerifyToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return verifier.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("sec: invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid session token claims")
	}

	return claims, nil
}
