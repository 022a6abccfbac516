// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codesearch

import (
	"fmt"
	"time"
)

// QueryError reports that one search query produced no usable count:
// transport failure, non-success status, or a malformed body.
type QueryError struct {
	Query string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	Err error
}

func (e *QueryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("code search %q: HTTP %d: %v", e.Query, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("code search %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// RateLimitError reports that GitHub kept refusing requests for quota
// reasons after every allowed pause. Further queries in the same run
// would fail the same way.
type RateLimitError struct {
	Query      string
	StatusCode int

	// Reset is when GitHub says the quota refills; zero when unknown.
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("code search rate limit exhausted (HTTP %d) at %q", e.StatusCode, e.Query)
	if !e.Reset.IsZero() {
		msg += "; quota resets at " + e.Reset.Format(time.RFC3339)
	}
	return msg
}
