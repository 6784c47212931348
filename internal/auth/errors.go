// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package auth

import (
	"errors"
	"fmt"

	"github.com/koshly/koshly/internal/platform/apperr"
)

// # Failure Taxonomy

// Kind classifies a sign-in pipeline failure. The set is closed: every
// internal cause collapses into one of these buckets, and [Translate] is the
// only place a bucket becomes a client-visible message. No call site can
// leak a more specific reason.
type Kind int

const (
	// KindUnknown is the catch-all for infrastructure failures (store or
	// remote-service outages). Maps to a 500.
	KindUnknown Kind = iota

	// KindVerificationRequired marks a missing or too-short verification token.
	KindVerificationRequired

	// KindVerificationFailed covers remote verdict failure, hostname
	// mismatch, action mismatch, and token replay. Deliberately one bucket:
	// a caller must not be able to tell replay apart from a bad token.
	KindVerificationFailed

	// KindRateLimited marks an attempt-counter ceiling breach.
	KindRateLimited

	// KindInvalidCredentials marks a provider rejection of the credentials.
	KindInvalidCredentials
)

// String returns the snake_case label used in logs and the audit trail.
func (kind Kind) String() string {
	switch kind {
	case KindVerificationRequired:
		return "verification_required"
	case KindVerificationFailed:
		return "verification_failed"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// FlowError is a classified sign-in pipeline failure. The Cause carries the
// specific server-side reason for logging; it never reaches a client.
type FlowError struct {
	Kind  Kind
	Cause error
}

// Error implements the error interface with the internal (log-only) detail.
func (e *FlowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth_flow_%s: %v", e.Kind, e.Cause)
	}
	return "auth_flow_" + e.Kind.String()
}

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *FlowError) Unwrap() error { return e.Cause }

// fail wraps a cause into a classified [FlowError].
func fail(kind Kind, cause error) *FlowError {
	return &FlowError{Kind: kind, Cause: cause}
}

// # Translation

/*
Translate maps any pipeline error to its client-visible [apperr.AppError].

Description: The single choke point between the closed failure taxonomy and
client-visible messages. Four fixed strings plus a generic 500; nothing else
can be surfaced.

Parameters:
  - err: error (a *FlowError, an *apperr.AppError, or anything else)

Returns:
  - *apperr.AppError: Transport-ready error with a uniform message
*/
func Translate(err error) *apperr.AppError {

	// Pass through errors that already carry a client-safe shape
	// (validation failures built in the HTTP layer).
	if appError := apperr.As(err); appError != nil {
		return appError
	}

	var flowError *FlowError
	if !errors.As(err, &flowError) {
		return apperr.Internal(err)
	}

	switch flowError.Kind {
	case KindVerificationRequired:
		return apperr.BadRequest("VERIFICATION_REQUIRED", "Security verification required")
	case KindVerificationFailed:
		return apperr.BadRequest("VERIFICATION_FAILED", "Security verification failed")
	case KindRateLimited:
		return apperr.RateLimited("Too many attempts. Please try again later.")
	case KindInvalidCredentials:
		return apperr.Unauthorized("Invalid login credentials")
	default:
		return apperr.Internal(err)
	}
}
