// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/koshly/koshly/internal/platform/constants"
)

// # Replay Ledger (Redis)

// replayStore is the slice of the Redis command surface the ledger uses.
type replayStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisReplayLedger implements ReplayLedger using Redis SETNX.
type RedisReplayLedger struct {
	client replayStore
}

// NewReplayLedger creates a new Redis-backed ReplayLedger.
func NewReplayLedger(client *redis.Client) *RedisReplayLedger {
	return &RedisReplayLedger{client: client}
}

/*
ConsumeOnce marks the token consumed via SETNX with the replay TTL.

Description: SETNX is atomic server-side, so exactly one of two concurrent
redemptions observes the key as unset. The stored value is the consumption
timestamp for forensic inspection.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - bool: true if the token was already consumed
  - error: Connectivity failures
*/
func (ledger *RedisReplayLedger) ConsumeOnce(context context.Context, token string) (bool, error) {
	key := replayKey(token)

	stored, err := ledger.client.SetNX(context, key, time.Now().UTC().Format(time.RFC3339), ReplayTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis_replay_consume_failed: %w", err)
	}

	// SETNX returns false when the key already existed
	return !stored, nil
}

// replayKey builds the ledger key for a verification token.
func replayKey(token string) string {
	return constants.RedisPrefixReplay + token
}

// # Attempt Limiter (Redis)

// attemptScript atomically increments the window counter and arms its expiry
// on first use. Returns the post-increment count.
var attemptScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisAttemptLimiter implements AttemptLimiter with a fixed-window counter.
type RedisAttemptLimiter struct {
	client redis.Scripter
}

// NewAttemptLimiter creates a new Redis-backed AttemptLimiter.
func NewAttemptLimiter(client *redis.Client) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{client: client}
}

/*
Allow increments the (action, dimension, secondary) counter and compares it to
the ceiling.

Description: Increment-and-check runs as one Lua script, so concurrent
attempts for the same identity serialize inside Redis and cannot both land
under the ceiling.

Parameters:
  - context: context.Context
  - action: string
  - dimension: string
  - secondary: string

Returns:
  - bool: true if the attempt count is within AttemptCeiling
  - error: Connectivity or script execution failures
*/
func (limiter *RedisAttemptLimiter) Allow(context context.Context, action, dimension, secondary string) (bool, error) {
	key := attemptKey(action, dimension, secondary)

	count, err := attemptScript.Run(context, limiter.client, []string{key}, AttemptWindow.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis_attempt_incr_failed: %w", err)
	}

	return count <= AttemptCeiling, nil
}

// attemptKey builds the counter key. The secondary dimension is optional.
func attemptKey(action, dimension, secondary string) string {
	parts := []string{action, strings.ToLower(dimension)}
	if secondary != "" {
		parts = append(parts, strings.ToLower(secondary))
	}
	return constants.RedisPrefixAttempts + strings.Join(parts, ":")
}
