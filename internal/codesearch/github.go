// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package codesearch counts GitHub code search matches for a query string.
// Requests share one pacing gate so a run never exceeds the code search
// request ceiling, and rate-limited responses are paused and retried
// before being reported as a RateLimitError.
package codesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/dataset-popularity/internal/httputil"
	"github.com/pdiddy/dataset-popularity/pkg/types"
)

const (
	// DefaultBaseURL is the GitHub REST API root.
	DefaultBaseURL = "https://api.github.com"

	// DefaultAPIVersion is the REST API version the response shape is read against.
	DefaultAPIVersion = "2022-11-28"

	// DefaultRequestDelay keeps a run under 10 code search requests per minute.
	DefaultRequestDelay = 7 * time.Second

	searchCodePath = "/search/code"
	acceptHeader   = "application/vnd.github+json"
)

// Result is the part of a code search response the popularity count needs.
type Result struct {
	TotalCount int

	// Incomplete is GitHub's incomplete_results flag: the search timed out
	// and TotalCount is a lower bound.
	Incomplete bool
}

// Client queries the GitHub code search endpoint.
type Client struct {
	HTTP   *http.Client
	cfg    types.SearchConfig
	pacer  *rate.Limiter
	policy httputil.Policy
}

// NewClient returns a client for cfg. Missing fields take the package
// defaults; cfg.Token must already be resolved.
func NewClient(client *http.Client, cfg types.SearchConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		HTTP:  client,
		cfg:   cfg,
		pacer: NewPacer(cfg.RequestDelay),
		policy: httputil.Policy{
			MaxRetries: cfg.MaxRateLimitRetries,
			MaxWait:    cfg.MaxRateLimitWait,
		},
	}
}

// OnRateLimitWait registers a callback invoked before each rate-limit pause.
func (c *Client) OnRateLimitWait(fn func(attempt int, wait time.Duration)) {
	c.policy.OnWait = fn
}

// NewPacer returns a limiter that releases one request per delay with no
// burst beyond a single request. A zero delay disables pacing.
func NewPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Count runs one code search and returns the reported total. Errors are
// *QueryError or *RateLimitError, except for context cancellation which
// is returned unwrapped.
func (c *Client) Count(ctx context.Context, query string) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, &QueryError{Query: query, Err: errors.New("empty query")}
	}

	if err := c.pacer.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, &QueryError{Query: query, Err: err}
	}

	// Only the total matters, so ask for the smallest page.
	params := url.Values{
		"q":        {query},
		"per_page": {"1"},
	}
	reqURL := c.cfg.BaseURL + searchCodePath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, &QueryError{Query: query, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", c.cfg.APIVersion)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.policy)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, &QueryError{Query: query, Err: fmt.Errorf("GitHub API request: %w", err)}
	}
	defer resp.Body.Close()

	if httputil.IsRateLimited(resp) {
		return Result{}, &RateLimitError{
			Query:      query,
			StatusCode: resp.StatusCode,
			Reset:      resetTime(resp),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &QueryError{
			Query:      query,
			StatusCode: resp.StatusCode,
			Err:        errors.New(errorMessage(resp.Body)),
		}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Result{}, &QueryError{Query: query, StatusCode: resp.StatusCode, Err: fmt.Errorf("parsing response: %w", err)}
	}
	if sr.TotalCount == nil {
		return Result{}, &QueryError{Query: query, StatusCode: resp.StatusCode, Err: errors.New("response has no total_count")}
	}
	if *sr.TotalCount < 0 {
		return Result{}, &QueryError{Query: query, StatusCode: resp.StatusCode, Err: fmt.Errorf("negative total_count %d", *sr.TotalCount)}
	}

	return Result{TotalCount: *sr.TotalCount, Incomplete: sr.IncompleteResults}, nil
}

// errorMessage extracts GitHub's error message, falling back to a short
// prefix of the raw body.
func errorMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var ge githubError
	if json.Unmarshal(data, &ge) == nil && ge.Message != "" {
		return ge.Message
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}

func resetTime(resp *http.Response) time.Time {
	epoch, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(epoch, 0).UTC()
}

// GitHub code search JSON structures. Items are not read.
type searchResponse struct {
	TotalCount        *int              `json:"total_count"`
	IncompleteResults bool              `json:"incomplete_results"`
	Items             []json.RawMessage `json:"items"`
}

type githubError struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}
