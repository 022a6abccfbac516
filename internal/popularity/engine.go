// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package popularity turns catalog queries into popularity records by
// running each query through a code search counter, one at a time.
//
// A failed query becomes a failure marker for its dataset and the run
// moves on. Queries marked Skip are never sent and become failure markers
// too. An exhausted rate limit or a cancelled context stops the run:
// every query not yet sent is marked failed with that cause, so each input
// still yields exactly one record, in input order.
package popularity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/dataset-popularity/internal/catalog"
	"github.com/pdiddy/dataset-popularity/internal/codesearch"
	"github.com/pdiddy/dataset-popularity/internal/metrics"
	"github.com/pdiddy/dataset-popularity/pkg/types"
)

// Counter returns the code search total for a query string.
type Counter interface {
	Count(ctx context.Context, query string) (codesearch.Result, error)
}

// Engine runs queries sequentially against a Counter.
type Engine struct {
	Counter Counter

	// Metrics is optional.
	Metrics *metrics.Recorder

	Log zerolog.Logger

	// Out receives per-dataset progress lines and the final summary.
	// Nil discards them.
	Out io.Writer
}

// Output is the result of a run.
type Output struct {
	// Records holds one record per input query, in input order.
	Records []types.PopularityRecord

	// Aborted is the error that stopped the run early: a
	// *codesearch.RateLimitError or a context error. Nil when every query
	// was attempted.
	Aborted error
}

// Failures returns the failure markers in input order.
func (o Output) Failures() []types.PopularityRecord {
	var failed []types.PopularityRecord
	for _, r := range o.Records {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Succeeded returns the number of datasets that got a count.
func (o Output) Succeeded() int {
	return len(o.Records) - len(o.Failures())
}

// RateLimited reports whether the run stopped on an exhausted rate limit.
func (o Output) RateLimited() bool {
	var rle *codesearch.RateLimitError
	return errors.As(o.Aborted, &rle)
}

// ForEcosystem returns the records of one ecosystem, keeping input order.
func (o Output) ForEcosystem(name string) []types.PopularityRecord {
	var recs []types.PopularityRecord
	for _, r := range o.Records {
		if r.Ecosystem == name {
			recs = append(recs, r)
		}
	}
	return recs
}

// Run queries every dataset once and returns the records. It never returns
// early without a record per query.
func (e *Engine) Run(ctx context.Context, queries []catalog.Query) Output {
	w := e.Out
	if w == nil {
		w = io.Discard
	}

	out := Output{Records: make([]types.PopularityRecord, 0, len(queries))}

	for _, q := range queries {
		rec := types.PopularityRecord{Dataset: q.Dataset, Ecosystem: q.Ecosystem, Query: q.Text}

		if out.Aborted == nil && ctx.Err() != nil {
			out.Aborted = ctx.Err()
		}
		if out.Aborted != nil {
			rec.Err = fmt.Errorf("not queried: %w", out.Aborted)
			out.Records = append(out.Records, rec)
			continue
		}
		if q.Skip != "" {
			rec.Err = fmt.Errorf("not queried: %s", q.Skip)
			e.Log.Debug().Str("ecosystem", q.Ecosystem).Str("dataset", q.Dataset).Str("reason", q.Skip).Msg("dataset not queried")
			fmt.Fprintf(w, "skipped: %s (%s)\n", q.Dataset, q.Skip)
			e.Metrics.Observe(rec, 0)
			out.Records = append(out.Records, rec)
			continue
		}

		start := time.Now()
		res, err := e.Counter.Count(ctx, q.Text)
		took := time.Since(start)

		if err != nil {
			rec.Err = err
			var rle *codesearch.RateLimitError
			switch {
			case errors.As(err, &rle):
				out.Aborted = rle
				e.Metrics.RateLimited()
				e.Log.Error().Err(err).Str("dataset", q.Dataset).Msg("rate limit exhausted; skipping remaining datasets")
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				out.Aborted = err
				e.Log.Warn().Err(err).Str("dataset", q.Dataset).Msg("run cancelled")
			default:
				e.Log.Warn().Err(err).Str("ecosystem", q.Ecosystem).Str("dataset", q.Dataset).Msg("query failed")
			}
			fmt.Fprintf(w, "failed: %s (%v)\n", q.Dataset, err)
		} else {
			rec.Count = res.TotalCount
			rec.Incomplete = res.Incomplete
			if res.Incomplete {
				e.Log.Warn().Str("dataset", q.Dataset).Int("count", res.TotalCount).Msg("GitHub reported incomplete results; count is a lower bound")
			}
			e.Log.Debug().Str("query", q.Text).Dur("took", took).Int("count", res.TotalCount).Msg("query done")
			fmt.Fprintf(w, "%s: %d\n", q.Dataset, res.TotalCount)
		}

		e.Metrics.Observe(rec, took)
		out.Records = append(out.Records, rec)
	}

	writeSummary(w, out)
	return out
}

// writeSummary prints counts and names the failed datasets.
func writeSummary(w io.Writer, out Output) {
	failed := out.Failures()
	fmt.Fprintf(w, "\nQuery summary: %d counted, %d failed (total: %d)\n",
		len(out.Records)-len(failed), len(failed), len(out.Records))
	if len(failed) == 0 {
		return
	}
	names := make([]string, len(failed))
	for i, r := range failed {
		names[i] = r.Ecosystem + "/" + r.Dataset
	}
	fmt.Fprintf(w, "Failed datasets: %s\n", strings.Join(names, ", "))
	if out.Aborted != nil {
		fmt.Fprintf(w, "Run stopped early: %v\n", out.Aborted)
	}
}
