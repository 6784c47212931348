// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

/*
Package audit persists a trail of sign-in attempts for abuse investigation.

Every attempt — allowed or rejected — is recorded with its action, identity
dimension, network origin, and outcome classification. Recording is
best-effort: a storage failure must never block or fail a sign-in.
*/
package audit

import (
	"context"
	"time"
)

// # Domain Entities

// Attempt is one recorded sign-in attempt.
type Attempt struct {
	ID                string    `json:"id"`
	Action            string    `json:"action"`
	Identity          string    `json:"identity"`
	SecondaryIdentity string    `json:"secondary_identity,omitempty"`
	IPAddress         string    `json:"ip_address"`
	UserAgent         string    `json:"user_agent"`
	Outcome           string    `json:"outcome"`
	CreatedAt         time.Time `json:"created_at"`
}

// # Data Access

// Trail defines the persistence contract for sign-in attempts.
type Trail interface {

	/*
		Record persists one attempt.

		Parameters:
		  - context: context.Context
		  - attempt: *Attempt

		Returns:
		  - error: Persistence failures (callers treat as best-effort)
	*/
	Record(context context.Context, attempt *Attempt) error
}
