// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koshly/koshly/internal/platform/database/schema"
)

// PostgresTrail implements the [Trail] interface using pgx.
type PostgresTrail struct {
	pool *pgxpool.Pool
}

// NewPostgresTrail creates a new PostgreSQL implementation of the Trail.
func NewPostgresTrail(pool *pgxpool.Pool) *PostgresTrail {
	return &PostgresTrail{pool: pool}
}

/*
Record persists one attempt into the system.signinattempt table.

Parameters:
  - context: context.Context
  - attempt: *Attempt (Entity to persist)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (trail *PostgresTrail) Record(context context.Context, attempt *Attempt) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.SystemSignInAttempt.Table,
		schema.SystemSignInAttempt.ID, schema.SystemSignInAttempt.Action,
		schema.SystemSignInAttempt.Identity, schema.SystemSignInAttempt.SecondaryIdentity,
		schema.SystemSignInAttempt.IPAddress, schema.SystemSignInAttempt.UserAgent,
		schema.SystemSignInAttempt.Outcome, schema.SystemSignInAttempt.CreatedAt,
	)

	// Initialize the timestamp if the caller did not provide one
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	_, err := trail.pool.Exec(context, query,
		attempt.ID,
		attempt.Action,
		attempt.Identity,
		attempt.SecondaryIdentity,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Outcome,
		attempt.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("audit_trail_record_failed: %w", err)
	}

	return nil
}
