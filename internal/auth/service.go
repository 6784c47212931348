// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

/*
Package auth implements the sign-in pipeline for the Koshly directory.

Every sign-in variant runs the same sequential admission gate before its
credential exchange: verify the human-verification token, check the attempt
counter, consume the token in the replay ledger. Credentials themselves are
delegated to the external identity provider; this package never constructs,
signs, or verifies a session token of its own.

Architecture:

  - Service: Orchestrates the admission gate and the per-variant exchange.
  - ReplayLedger / AttemptLimiter: Redis-backed abuse-control collaborators.
  - Policy: Startup-injected security posture (no runtime-mode branches).
  - Kind / Translate: Closed failure taxonomy with uniform client messages.

The pipeline deliberately merges distinguishable server-side causes (replay
vs. bad token, unknown user vs. wrong password) into identical client
messages to deny attackers an oracle.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koshly/koshly/internal/audit"
	"github.com/koshly/koshly/internal/identity"
	"github.com/koshly/koshly/internal/platform/ctxutil"
	"github.com/koshly/koshly/internal/verify"
	"github.com/koshly/koshly/pkg/uuid"
)

// # Service

// Service implements the sign-in use cases.
//
// # Review Process
//
// This service is critical for security. Any change to the admission gate
// ordering or the failure taxonomy must be reviewed by the security team.
type Service struct {
	verifier verify.Verifier
	replays  ReplayLedger
	attempts AttemptLimiter
	provider identity.Provider
	trail    audit.Trail
	policy   Policy

	// hostname the challenge widget must report for a token to be accepted.
	hostname string

	probeTimeout time.Duration
}

// NewService constructs a new [Service] with its collaborators.
func NewService(
	verifier verify.Verifier,
	replays ReplayLedger,
	attempts AttemptLimiter,
	provider identity.Provider,
	trail audit.Trail,
	policy Policy,
	hostname string,
) *Service {
	return &Service{
		verifier:     verifier,
		replays:      replays,
		attempts:     attempts,
		provider:     provider,
		trail:        trail,
		policy:       policy,
		hostname:     hostname,
		probeTimeout: ProbeTimeout,
	}
}

// # Admission Gate

/*
admit runs the shared pre-exchange pipeline for one attempt.

Description: Ordered gate — human verification, attempt counter, replay
consumption. Each stage either passes or returns a classified [FlowError];
no credential exchange happens unless every enforced stage passes.

Parameters:
  - context: context.Context
  - action: string (pipeline action, keys the counter and the widget check)
  - token: string (client-supplied verification token)
  - dimension: string (primary rate-limit identity)
  - secondary: string (optional second rate-limit identity)
  - remoteIP: string (forwarded to the verification service for scoring)

Returns:
  - error: nil on admission, otherwise a *FlowError
*/
func (service *Service) admit(context context.Context, action, token, dimension, secondary, remoteIP string) error {

	// ── 1. Human Verification ─────────────────────────────────────────────
	if service.policy.EnforceVerification {

		// Pre-flight length floor: reject junk without a remote call
		if len(token) < MinVerificationTokenLength {
			return fail(KindVerificationRequired, nil)
		}

		verdict, err := service.verifier.Verify(context, token, remoteIP)
		if err != nil {
			return fail(KindUnknown, fmt.Errorf("auth_verify_call_failed: %w", err))
		}

		if !verdict.Success {
			return fail(KindVerificationFailed, fmt.Errorf("auth_verify_rejected: %v", verdict.ErrorCodes))
		}

		if service.policy.EnforceHostnameCheck && verdict.Hostname != service.hostname {
			return fail(KindVerificationFailed, fmt.Errorf("auth_verify_hostname_mismatch: %q", verdict.Hostname))
		}

		// Action is optional in the verdict; when present it must match
		if service.policy.EnforceActionCheck && verdict.Action != "" && verdict.Action != action {
			return fail(KindVerificationFailed, fmt.Errorf("auth_verify_action_mismatch: %q", verdict.Action))
		}
	}

	// ── 2. Attempt Counter ────────────────────────────────────────────────
	if service.policy.EnforceRateLimit {
		allowed, err := service.attempts.Allow(context, action, dimension, secondary)
		if err != nil {
			return fail(KindUnknown, err)
		}
		if !allowed {
			return fail(KindRateLimited, nil)
		}
	}

	// ── 3. Replay Consumption ─────────────────────────────────────────────
	// Only a verified token enters the ledger; with verification off there
	// is nothing to consume.
	if service.policy.EnforceVerification {
		replayed, err := service.replays.ConsumeOnce(context, token)
		if err != nil {
			return fail(KindUnknown, err)
		}
		if replayed {
			// Same client-visible bucket as a failed verdict
			return fail(KindVerificationFailed, errors.New("auth_token_replayed"))
		}
	}

	return nil
}

// # Sign-In Variants

// PasswordInput defines an email/password attempt.
type PasswordInput struct {
	Email             string
	Password          string
	VerificationToken string
	IPAddress         string
	UserAgent         string
}

/*
SignInWithPassword runs the full pipeline for the password variant.

Parameters:
  - context: context.Context
  - input: PasswordInput

Returns:
  - *identity.Session: Provider-issued session on success
  - error: Classified *FlowError on any rejection
*/
func (service *Service) SignInWithPassword(context context.Context, input PasswordInput) (*identity.Session, error) {

	if err := service.admit(context, ActionSignIn, input.VerificationToken, input.Email, input.IPAddress, input.IPAddress); err != nil {
		service.record(context, ActionSignIn, input.Email, "", input.IPAddress, input.UserAgent, outcomeOf(err))
		return nil, err
	}

	session, err := service.provider.SignInWithPassword(context, input.Email, input.Password)
	if err != nil {
		flowError := classifyExchange(err)
		service.record(context, ActionSignIn, input.Email, "", input.IPAddress, input.UserAgent, outcomeOf(flowError))
		return nil, flowError
	}

	service.record(context, ActionSignIn, input.Email, "", input.IPAddress, input.UserAgent, OutcomeAllowed)
	return session, nil
}

// AnonymousInput defines a guest session attempt.
type AnonymousInput struct {
	VerificationToken string
	IPAddress         string
	UserAgent         string
}

/*
SignInAnonymously runs the pipeline for the guest variant.

Description: No credentials are exchanged; the provider allocates an
ephemeral identity. Rate-limited by client IP only.

Parameters:
  - context: context.Context
  - input: AnonymousInput

Returns:
  - *identity.Session: Provider-issued guest session
  - error: Classified *FlowError on any rejection
*/
func (service *Service) SignInAnonymously(context context.Context, input AnonymousInput) (*identity.Session, error) {

	if err := service.admit(context, ActionSignInAnonymous, input.VerificationToken, input.IPAddress, "", input.IPAddress); err != nil {
		service.record(context, ActionSignInAnonymous, "", "", input.IPAddress, input.UserAgent, outcomeOf(err))
		return nil, err
	}

	session, err := service.provider.SignInAnonymously(context)
	if err != nil {
		flowError := classifyExchange(err)
		service.record(context, ActionSignInAnonymous, "", "", input.IPAddress, input.UserAgent, outcomeOf(flowError))
		return nil, flowError
	}

	service.record(context, ActionSignInAnonymous, "", "", input.IPAddress, input.UserAgent, OutcomeAllowed)
	return session, nil
}

// MagicLinkInput defines an email-only, out-of-band attempt.
type MagicLinkInput struct {
	Email             string
	RedirectTo        string
	VerificationToken string
	IPAddress         string
	UserAgent         string
}

/*
SendMagicLink runs the pipeline for the magic-link variant.

Description: Terminates at "email sent" — no session is returned. A provider
denial (unknown address, disabled account) is swallowed into the same
success response so the endpoint cannot be used to enumerate accounts; the
denial is still recorded in the audit trail.

Parameters:
  - context: context.Context
  - input: MagicLinkInput

Returns:
  - error: Classified *FlowError on admission failure or provider outage
*/
func (service *Service) SendMagicLink(context context.Context, input MagicLinkInput) error {

	if err := service.admit(context, ActionMagicLink, input.VerificationToken, input.Email, input.IPAddress, input.IPAddress); err != nil {
		service.record(context, ActionMagicLink, input.Email, "", input.IPAddress, input.UserAgent, outcomeOf(err))
		return err
	}

	err := service.provider.SendMagicLink(context, input.Email, input.RedirectTo)
	if err != nil {
		if errors.Is(err, identity.ErrDenied) {
			service.record(context, ActionMagicLink, input.Email, "", input.IPAddress, input.UserAgent, KindInvalidCredentials.String())
			return nil
		}
		service.record(context, ActionMagicLink, input.Email, "", input.IPAddress, input.UserAgent, KindUnknown.String())
		return fail(KindUnknown, err)
	}

	service.record(context, ActionMagicLink, input.Email, "", input.IPAddress, input.UserAgent, OutcomeAllowed)
	return nil
}

// OAuthInput defines an OAuth initiation attempt.
type OAuthInput struct {
	Provider          string
	RedirectTo        string
	VerificationToken string
	IPAddress         string
	UserAgent         string
}

/*
StartOAuth runs the pipeline for the OAuth variant and builds the redirect.

Description: Exits the pipeline with an authorize URL for the browser; the
provider's callback surface completes the sign-in out of band.

Parameters:
  - context: context.Context
  - input: OAuthInput

Returns:
  - string: The provider's authorization URL
  - error: Classified *FlowError on any rejection
*/
func (service *Service) StartOAuth(context context.Context, input OAuthInput) (string, error) {

	if err := service.admit(context, ActionOAuth, input.VerificationToken, input.IPAddress, "", input.IPAddress); err != nil {
		service.record(context, ActionOAuth, "", input.Provider, input.IPAddress, input.UserAgent, outcomeOf(err))
		return "", err
	}

	authorizeURL, err := service.provider.AuthorizeURL(input.Provider, input.RedirectTo)
	if err != nil {
		service.record(context, ActionOAuth, "", input.Provider, input.IPAddress, input.UserAgent, KindUnknown.String())
		return "", fail(KindUnknown, err)
	}

	service.record(context, ActionOAuth, "", input.Provider, input.IPAddress, input.UserAgent, OutcomeAllowed)
	return authorizeURL, nil
}

// # Session Lifecycle

/*
SignOut revokes the provider session behind the access token.

Description: Idempotent — revoking an already-dead session succeeds.

Parameters:
  - context: context.Context
  - accessToken: string

Returns:
  - error: Provider transport failures
*/
func (service *Service) SignOut(context context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}

	if err := service.provider.SignOut(context, accessToken); err != nil {
		return fail(KindUnknown, err)
	}

	return nil
}

/*
Probe resolves the user behind an access token for UX redirect decisions.

Description: Races the provider lookup against the probe timeout. Any
failure — invalid token, provider outage, timeout — degrades to "anonymous
visitor" (nil user, nil error) so the caller renders the sign-in form
instead of hanging. Never used for authorization decisions.

Parameters:
  - context: context.Context
  - accessToken: string

Returns:
  - *identity.User: The authenticated identity, or nil for anonymous
  - error: Always nil today; reserved for future hard failures
*/
func (service *Service) Probe(context context.Context, accessToken string) (*identity.User, error) {
	if accessToken == "" {
		return nil, nil
	}

	type probeOutcome struct {
		user *identity.User
		err  error
	}

	outcomes := make(chan probeOutcome, 1)
	go func() {
		user, err := service.provider.GetSession(context, accessToken)
		outcomes <- probeOutcome{user: user, err: err}
	}()

	select {
	case outcome := <-outcomes:
		if outcome.err != nil {
			return nil, nil
		}
		return outcome.user, nil
	case <-time.After(service.probeTimeout):
		return nil, nil
	}
}

// # Helpers

// classifyExchange maps a provider error from a credential exchange to its
// failure kind.
func classifyExchange(err error) *FlowError {
	if errors.Is(err, identity.ErrDenied) {
		return fail(KindInvalidCredentials, err)
	}
	return fail(KindUnknown, err)
}

// outcomeOf returns the audit-trail label for a pipeline error.
func outcomeOf(err error) string {
	var flowError *FlowError
	if errors.As(err, &flowError) {
		return flowError.Kind.String()
	}
	return KindUnknown.String()
}

// record appends one attempt to the audit trail. Best-effort: a trail
// failure is logged and never blocks or fails the sign-in.
func (service *Service) record(context context.Context, action, identityDim, secondary, ipAddress, userAgent, outcome string) {
	attempt := &audit.Attempt{
		ID:                uuid.New(),
		Action:            action,
		Identity:          identityDim,
		SecondaryIdentity: secondary,
		IPAddress:         ipAddress,
		UserAgent:         userAgent,
		Outcome:           outcome,
		CreatedAt:         time.Now().UTC(),
	}

	if err := service.trail.Record(context, attempt); err != nil {
		ctxutil.GetLogger(context).Warn("audit trail write failed",
			"action", action,
			"outcome", outcome,
			"error", err,
		)
	}
}
