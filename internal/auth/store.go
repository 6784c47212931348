// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package auth

import "context"

// # Replay Ledger

// ReplayLedger defines the single-use consumption contract for verification
// tokens.
type ReplayLedger interface {

	/*
		ConsumeOnce records the token as consumed.

		Description: Atomic with respect to itself — two near-simultaneous
		redemptions of the same token must not both succeed.

		Parameters:
		  - context: context.Context
		  - token: string (the verified challenge token)

		Returns:
		  - bool: true if the token was ALREADY consumed (replay)
		  - error: Store connectivity failures
	*/
	ConsumeOnce(context context.Context, token string) (bool, error)
}

// # Attempt Limiter

// AttemptLimiter defines the per-action, per-identity attempt counter.
type AttemptLimiter interface {

	/*
		Allow increments the counter for (action, dimension, secondary) and
		reports whether the attempt is within the ceiling.

		Description: Increment-and-check is a single atomic operation so two
		concurrent attempts for the same identity cannot both slip under the
		ceiling.

		Parameters:
		  - context: context.Context
		  - action: string (e.g. "signin")
		  - dimension: string (primary identity: email or client IP)
		  - secondary: string (optional second dimension; "" to omit)

		Returns:
		  - bool: true if the attempt is allowed
		  - error: Store connectivity failures
	*/
	Allow(context context.Context, action, dimension, secondary string) (bool, error)
}
