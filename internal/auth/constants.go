// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package auth

import "time"

// # Sign-In Pipeline Constraints

const (
	// MinVerificationTokenLength is the pre-flight floor for a verification
	// token. Anything shorter is rejected without a remote call; real
	// challenge tokens are hundreds of characters long.
	MinVerificationTokenLength = 20

	// ReplayTTL is how long a consumed verification token stays in the
	// replay ledger. Matched to the challenge service's own token lifetime
	// (5 minutes), after which the remote service rejects the token anyway.
	ReplayTTL = 5 * time.Minute

	// AttemptWindow is the fixed window for the per-action attempt counter.
	AttemptWindow = 10 * time.Minute

	// AttemptCeiling is the maximum sign-in attempts per (action, identity)
	// within one window.
	AttemptCeiling = 10

	// ProbeTimeout bounds the remote "who am I" lookup. On expiry the
	// prober reports an anonymous visitor rather than hanging the page.
	ProbeTimeout = 3 * time.Second

	// RefreshCookieTTL is the lifetime of the refresh token cookie. The
	// provider owns the token's actual validity; this only bounds how long
	// the browser retains it.
	RefreshCookieTTL = 30 * 24 * time.Hour
)

// # Action Names

// Action names key the attempt counters and the audit trail, and must match
// the action the challenge widget claims for the token.
const (
	ActionSignIn          = "signin"
	ActionSignInAnonymous = "signin_anonymous"
	ActionMagicLink       = "magic_link"
	ActionOAuth           = "oauth"
)

// # Attempt Outcomes

const (
	// OutcomeAllowed marks an attempt that completed its credential exchange.
	OutcomeAllowed = "allowed"
)

// # JSON Field Identifiers

const (
	FieldEmail             = "email"
	FieldPassword          = "password"
	FieldVerificationToken = "cf_turnstile_response"
	FieldProvider          = "provider"
	FieldRedirectTo        = "redirect_to"
)
