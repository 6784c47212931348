// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package auth

// Policy is the security posture of the sign-in pipeline, injected at
// startup.
//
// # Scope
//
// Every relaxation a deployment may need (local development without the
// challenge widget, staging behind a different hostname) is an explicit
// field here. The pipeline itself contains no runtime-mode branches, so
// tests can exercise both postures deterministically.
type Policy struct {
	// EnforceVerification gates the whole human gate: token length check,
	// remote verification, and replay consumption.
	EnforceVerification bool

	// EnforceHostnameCheck requires the remote verdict's hostname to match
	// the configured application hostname.
	EnforceHostnameCheck bool

	// EnforceActionCheck requires the remote verdict's action, when present,
	// to match the pipeline action being attempted.
	EnforceActionCheck bool

	// EnforceRateLimit gates the per-action attempt counter.
	EnforceRateLimit bool
}
