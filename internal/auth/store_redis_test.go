// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// fakeReplayStore records the SETNX call and returns a canned outcome.
type fakeReplayStore struct {
	stored bool
	err    error

	key string
	ttl time.Duration
}

func (store *fakeReplayStore) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	store.key = key
	store.ttl = expiration
	return redis.NewBoolResult(store.stored, store.err)
}

// fakeScripter answers every script evaluation with a canned counter value.
type fakeScripter struct {
	count int64
	err   error

	keys []string
	args []interface{}
}

func (scripter *fakeScripter) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	scripter.keys = keys
	scripter.args = args
	return redis.NewCmdResult(scripter.count, scripter.err)
}

func (scripter *fakeScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	scripter.keys = keys
	scripter.args = args
	return redis.NewCmdResult(scripter.count, scripter.err)
}

func (scripter *fakeScripter) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return scripter.Eval(ctx, script, keys, args...)
}

func (scripter *fakeScripter) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return scripter.EvalSha(ctx, sha1, keys, args...)
}

func (scripter *fakeScripter) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (scripter *fakeScripter) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

/*
TestConsumeOnce_FirstUse verifies a fresh token is stored with the replay TTL
and reported as not yet consumed.
*/
func TestConsumeOnce_FirstUse(t *testing.T) {
	store := &fakeReplayStore{stored: true}
	ledger := &RedisReplayLedger{client: store}

	consumed, err := ledger.ConsumeOnce(context.Background(), "fresh-token")

	assert.NoError(t, err)
	assert.False(t, consumed)
	assert.Equal(t, "auth:replay:fresh-token", store.key)
	assert.Equal(t, ReplayTTL, store.ttl)
}

/*
TestConsumeOnce_SecondUse verifies that when SETNX reports the key already
present, the ledger flags the token as consumed.
*/
func TestConsumeOnce_SecondUse(t *testing.T) {
	// SETNX returns false when another redemption already won the race
	store := &fakeReplayStore{stored: false}
	ledger := &RedisReplayLedger{client: store}

	consumed, err := ledger.ConsumeOnce(context.Background(), "seen-token")

	assert.NoError(t, err)
	assert.True(t, consumed)
}

/*
TestConsumeOnce_Outage verifies connectivity failures surface as errors rather
than silently letting the token through.
*/
func TestConsumeOnce_Outage(t *testing.T) {
	store := &fakeReplayStore{err: errors.New("connection refused")}
	ledger := &RedisReplayLedger{client: store}

	consumed, err := ledger.ConsumeOnce(context.Background(), "any-token")

	assert.Error(t, err)
	assert.ErrorContains(t, err, "redis_replay_consume_failed")
	assert.False(t, consumed)
}

/*
TestAllow_WithinCeiling verifies counts at or below the ceiling are allowed
and that the script receives the counter key and window in milliseconds.
*/
func TestAllow_WithinCeiling(t *testing.T) {
	scripter := &fakeScripter{count: 1}
	limiter := &RedisAttemptLimiter{client: scripter}

	allowed, err := limiter.Allow(context.Background(), ActionSignIn, "a@b.com", "203.0.113.7")

	assert.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, []string{"auth:attempts:signin:a@b.com:203.0.113.7"}, scripter.keys)
	assert.Equal(t, []interface{}{AttemptWindow.Milliseconds()}, scripter.args)
}

/*
TestAllow_AtCeiling verifies the boundary attempt is still allowed.
*/
func TestAllow_AtCeiling(t *testing.T) {
	scripter := &fakeScripter{count: AttemptCeiling}
	limiter := &RedisAttemptLimiter{client: scripter}

	allowed, err := limiter.Allow(context.Background(), ActionSignIn, "a@b.com", "")

	assert.NoError(t, err)
	assert.True(t, allowed)
}

/*
TestAllow_OverCeiling verifies the first attempt past the ceiling is denied.
*/
func TestAllow_OverCeiling(t *testing.T) {
	scripter := &fakeScripter{count: AttemptCeiling + 1}
	limiter := &RedisAttemptLimiter{client: scripter}

	allowed, err := limiter.Allow(context.Background(), ActionSignIn, "a@b.com", "")

	assert.NoError(t, err)
	assert.False(t, allowed)
}

/*
TestAllow_ScriptFailure verifies script errors surface instead of granting
the attempt.
*/
func TestAllow_ScriptFailure(t *testing.T) {
	scripter := &fakeScripter{err: errors.New("READONLY replica")}
	limiter := &RedisAttemptLimiter{client: scripter}

	allowed, err := limiter.Allow(context.Background(), ActionSignIn, "a@b.com", "")

	assert.Error(t, err)
	assert.ErrorContains(t, err, "redis_attempt_incr_failed")
	assert.False(t, allowed)
}

/*
TestReplayKey verifies the ledger key carries the taxonomy prefix so replay
records never collide with attempt counters.
*/
func TestReplayKey(t *testing.T) {
	assert.Equal(t, "auth:replay:some-token", replayKey("some-token"))
}

/*
TestAttemptKey verifies counter key construction, including case folding and
the optional secondary dimension.
*/
func TestAttemptKey(t *testing.T) {
	// 1. Primary dimension only
	assert.Equal(t,
		"auth:attempts:signin_anonymous:203.0.113.7",
		attemptKey(ActionSignInAnonymous, "203.0.113.7", ""),
	)

	// 2. Secondary dimension appended
	assert.Equal(t,
		"auth:attempts:signin:a@b.com:203.0.113.7",
		attemptKey(ActionSignIn, "a@b.com", "203.0.113.7"),
	)

	// 3. Identities are case-folded so A@B.com and a@b.com share a window
	assert.Equal(t,
		attemptKey(ActionSignIn, "A@B.com", ""),
		attemptKey(ActionSignIn, "a@b.com", ""),
	)
}
