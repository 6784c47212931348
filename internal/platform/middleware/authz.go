// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/koshly/koshly/internal/platform/constants"
	"github.com/koshly/koshly/internal/platform/ctxkey"
	"github.com/koshly/koshly/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify session tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the `sec`
// implementation, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.SessionClaims, error)
}

// Authenticate extracts and verifies the provider-issued session JWT.
//
// # Flow
//  1. Look for the access token cookie; fall back to 'Authorization: Bearer'.
//  2. If absent, the request proceeds as anonymous.
//  3. If present, verify the JWT signature locally via [TokenVerifier].
//  4. On success, inject [*sec.SessionClaims] into the request context.
//
// A token that fails local verification does NOT abort the request: the
// provider owns session truth, and downstream handlers (the auth-state
// prober) fall back to a remote session lookup. Authorization decisions are
// never made from these claims alone.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			tokenStr := sessionToken(request)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if tokenStr == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Local Token Verification ───────────────────────────────────
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				// Stale or foreign token: treat as anonymous.
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := context.WithValue(request.Context(), ctxkey.KeyUser, claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// sessionToken extracts the raw session JWT from the request, preferring the
// httpOnly cookie set at sign-in over an explicit Authorization header.
func sessionToken(request *http.Request) string {
	if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := request.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
