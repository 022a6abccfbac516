// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for rate-limited APIs.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first pause when a rate-limited response carries
// no Retry-After or X-RateLimit-Reset hint. It doubles on each attempt.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 60 * time.Second

// now is swapped by tests that exercise X-RateLimit-Reset.
var now = time.Now

const (
	defaultMaxRetries = 10
	defaultMaxWait    = 5 * time.Minute
)

// Policy bounds how long DoWithRetry waits out a rate limit.
type Policy struct {
	// MaxRetries is the number of pauses before giving up (default 10).
	MaxRetries int

	// MaxWait caps a single pause (default 5m).
	MaxWait time.Duration

	// OnWait, when set, is called before each pause.
	OnWait func(attempt int, wait time.Duration)
}

// IsRateLimited reports whether resp signals quota exhaustion. GitHub uses
// 429 and, for both primary and secondary limits, 403 with either
// X-RateLimit-Remaining: 0 or a Retry-After header. A plain 403 (bad
// token scope) is not a rate limit.
func IsRateLimited(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != ""
	}
	return false
}

// RetryAfter returns how long to wait before retrying a rate-limited
// response, and whether the response carried a hint at all. Retry-After
// (seconds) wins over X-RateLimit-Reset (epoch seconds).
func RetryAfter(resp *http.Response) (time.Duration, bool) {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second, true
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			wait := time.Unix(epoch, 0).Sub(now())
			if wait < 0 {
				wait = 0
			}
			// The reset clock has one-second resolution.
			return wait + time.Second, true
		}
	}
	return 0, false
}

// DoWithRetry executes an HTTP request and, while the response is rate
// limited, pauses and retries. The pause honours Retry-After and
// X-RateLimit-Reset; without either it backs off exponentially from
// RetryBaseDelay. Every pause is capped at policy.MaxWait.
//
// On each limited response the body is drained and closed before sleeping.
// If the context is cancelled during a pause the function returns
// ctx.Err(). After policy.MaxRetries pauses the last limited response is
// returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy Policy) (*http.Response, error) {
	maxRetries := policy.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	maxWait := policy.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !IsRateLimited(resp) {
			return resp, nil
		}

		// Exhausted retries: return the limited response as-is.
		if attempt >= maxRetries {
			return resp, nil
		}

		wait, ok := RetryAfter(resp)
		if !ok {
			wait = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}
		if wait > maxWait {
			wait = maxWait
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if policy.OnWait != nil {
			policy.OnWait(attempt+1, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
