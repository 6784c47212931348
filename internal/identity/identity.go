// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

/*
Package identity delegates credential handling to the external identity provider.

The provider owns credential storage, session issuance, magic-link delivery,
and OAuth. This package deliberately contains NO token minting, signing, or
password verification of its own — it is a typed client for the provider's
REST API plus the capability contract the sign-in pipeline depends on.

Architecture:

  - Provider: The capability interface injected into the auth service.
  - Client: Concrete HTTP implementation (GoTrue-compatible API).
  - Session / User: Transport-ready provider entities.
*/
package identity

import (
	"context"
	"errors"
	"time"
)

// # Sentinel Errors

// ErrDenied indicates the provider rejected the request (bad credentials,
// unknown user, disabled account). The exact provider reason is wrapped for
// logging but must never reach a client.
var ErrDenied = errors.New("identity: provider denied the request")

// # Entities

// User is the provider's account representation, reduced to the fields the
// gateway consumes.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role,omitempty"`
	IsAnonymous bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session is a provider-issued credential bundle. The tokens inside are
// created and signed by the provider; the gateway only transports them into
// cookies.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// # Capability Contract

// Provider defines every identity operation the sign-in pipeline may invoke.
//
// # Review Process
//
// This interface is the trust boundary with the external provider. Adding an
// operation that constructs or verifies credentials locally is forbidden.
type Provider interface {

	/*
		SignInWithPassword exchanges an email/password pair for a session.

		Returns:
		  - *Session: Provider-issued tokens and user profile
		  - error: ErrDenied on rejection, otherwise transport failures
	*/
	SignInWithPassword(context context.Context, email, password string) (*Session, error)

	/*
		SignInAnonymously allocates an ephemeral guest identity and session.

		Returns:
		  - *Session: Provider-issued tokens for the guest identity
		  - error: ErrDenied or transport failures
	*/
	SignInAnonymously(context context.Context) (*Session, error)

	/*
		SendMagicLink asks the provider to email a one-time sign-in link.

		Description: Terminates out-of-band; no session is returned. The link
		lands on the provider's own callback surface.

		Returns:
		  - error: ErrDenied or transport failures
	*/
	SendMagicLink(context context.Context, email, redirectTo string) error

	/*
		AuthorizeURL builds the provider's OAuth authorization URL with the
		post-login destination embedded in the callback.

		Returns:
		  - string: Fully-qualified authorize URL for a browser redirect
		  - error: Unknown OAuth provider name
	*/
	AuthorizeURL(oauthProvider, redirectTo string) (string, error)

	/*
		GetSession resolves the user behind a provider-issued access token.

		Returns:
		  - *User: The authenticated identity
		  - error: ErrDenied if the token is invalid/expired, else transport failures
	*/
	GetSession(context context.Context, accessToken string) (*User, error)

	/*
		SignOut revokes the provider session behind the access token.

		Returns:
		  - error: Transport failures (revoking an unknown token is not an error)
	*/
	SignOut(context context.Context, accessToken string) error
}
