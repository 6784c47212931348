// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

/*
Package verify implements the bot-verification gate for the sign-in flow.

It validates client-supplied human-verification tokens against a third-party
challenge service (Cloudflare Turnstile siteverify protocol) before any
credential is examined.

Architecture:

  - Verifier: Abstracted contract so the auth pipeline can be tested with
    a scripted double and zero network calls.
  - Client: The concrete siteverify HTTP client.
  - Result: The decoded remote verdict (success, hostname, action, error codes).

The gate never explains WHY a token was rejected; all causes collapse into a
single uniform failure upstream to deny attackers diagnostic signal.
*/
package verify

import "context"

// # Contracts & Types

// Result is the decoded verdict from the remote verification endpoint.
type Result struct {
	// Success reports whether the challenge was solved.
	Success bool `json:"success"`

	// Hostname is the hostname of the page the challenge widget ran on.
	Hostname string `json:"hostname"`

	// Action is the widget action name the client claimed (e.g. "signin").
	Action string `json:"action"`

	// ErrorCodes lists machine-readable failure causes. Logged server-side
	// only; never surfaced to clients.
	ErrorCodes []string `json:"error-codes"`
}

// Verifier defines the contract for validating a verification token.
type Verifier interface {

	/*
		Verify submits the client token to the remote verification service.

		Parameters:
		  - context: context.Context
		  - token: string (the opaque client-supplied challenge response)
		  - remoteIP: string (the client IP, forwarded for additional scoring)

		Returns:
		  - *Result: Decoded remote verdict
		  - error: Transport or decoding failures (NOT verdict failures)
	*/
	Verify(context context.Context, token string, remoteIP string) (*Result, error)
}
