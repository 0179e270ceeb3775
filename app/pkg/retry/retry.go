// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package retry implements the jittered exponential backoff combinator named
// in the error-handling design notes: an explicit wrapper around a fallible
// call rather than exception-driven retry, generalized from the retry loop
// in bootstrap's MySQL connection setup.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy controls attempt count and backoff shape.
type Policy struct {
	MaxAttempts int           // Total attempts including the first, minimum 1.
	BaseDelay   time.Duration // Delay before the second attempt.
	MaxDelay    time.Duration // Ceiling applied after exponential growth.
}

// DefaultRPCPolicy matches §5's "caller-supplied timeout (default 5s);
// clients MUST apply jittered exponential backoff with a caller-visible
// retry budget" and §7's "up to 5 attempts".
var DefaultRPCPolicy = Policy{MaxAttempts: 5, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}

// UploadPolicy matches §7's "failed upload is retried up to 3 times with
// backoff".
var UploadPolicy = Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}

// Retryable lets an error say whether it is worth retrying. An error that
// implements it and reports false (e.g. a CONFLICT or INVALID
// apperr.Error) is surfaced immediately; errors that do not implement it
// are retried.
type Retryable interface {
	Retryable() bool
}

// Do runs fn up to policy.MaxAttempts times, sleeping a jittered exponential
// backoff between attempts. It stops early, without sleeping, when fn
// succeeds, when ctx is canceled, or when the returned error implements
// Retryable and reports false.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}

		if r, ok := err.(Retryable); ok && !r.Retryable() {
			return result, err
		}

		if attempt == attempts {
			break
		}

		delay := backoff(policy, attempt)
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delay):
		}
	}

	return result, err
}

// backoff doubles BaseDelay once per prior attempt (capped at MaxDelay) and
// returns a jittered delay between half of that value and all of it.
func backoff(policy Policy, attempt int) time.Duration {
	base := policy.BaseDelay
	for i := 1; i < attempt; i++ {
		base *= 2
		if base > policy.MaxDelay {
			base = policy.MaxDelay
			break
		}
	}

	jitter := time.Duration(rand.Int63n(int64(base) + 1))
	total := base/2 + jitter/2
	if total > policy.MaxDelay {
		total = policy.MaxDelay
	}
	return total
}
