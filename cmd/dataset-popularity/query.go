// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-popularity/internal/catalog"
	"github.com/pdiddy/dataset-popularity/internal/codesearch"
	"github.com/pdiddy/dataset-popularity/internal/history"
	"github.com/pdiddy/dataset-popularity/internal/metrics"
	"github.com/pdiddy/dataset-popularity/internal/popularity"
	"github.com/pdiddy/dataset-popularity/internal/report"
	"github.com/pdiddy/dataset-popularity/internal/secrets"
	"github.com/pdiddy/dataset-popularity/pkg/types"
)

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p := &pipeline{
		cfg:     cfg,
		sources: secrets.Sources{Configured: cfg.Search.Token, Log: log.Logger},
		out:     os.Stdout,
		log:     log.Logger,
		now:     time.Now,
	}
	return p.run(cmd.Context())
}

// pipeline is one query run: resolve the credential, render the catalog,
// query every dataset and write the reports.
type pipeline struct {
	cfg     types.Config
	sources secrets.Sources
	out     io.Writer
	log     zerolog.Logger
	now     func() time.Time
}

func (p *pipeline) run(ctx context.Context) error {
	// Everything that can be a configuration error happens before the first
	// request and before any report is touched.
	token, origin, err := secrets.GitHubToken(p.sources)
	if err != nil {
		return err
	}
	p.log.Info().Str("source", origin).Msg("GitHub token loaded")

	batches, err := p.batches()
	if err != nil {
		return err
	}

	search := p.cfg.Search
	search.Token = token
	client := codesearch.NewClient(&http.Client{Timeout: search.Timeout}, search)
	client.OnRateLimitWait(func(attempt int, wait time.Duration) {
		p.log.Warn().Int("attempt", attempt).Int("max", search.MaxRateLimitRetries).Dur("wait", wait).Msg("rate limited; pausing")
		fmt.Fprintf(p.out, "rate limited; waiting %s (%d/%d)\n", wait.Round(time.Second), attempt, search.MaxRateLimitRetries)
	})
	p.log.Info().
		Dur("request_delay", search.RequestDelay).
		Int("max_rate_limit_retries", search.MaxRateLimitRetries).
		Dur("max_rate_limit_wait", search.MaxRateLimitWait).
		Msg("rate limit policy: pause, then abort the run")

	var recorder *metrics.Recorder
	if p.cfg.Metrics.Textfile != "" {
		recorder = metrics.NewRecorder()
	}

	var queries []catalog.Query
	for _, b := range batches {
		queries = append(queries, b.Queries...)
	}

	engine := &popularity.Engine{Counter: client, Metrics: recorder, Log: p.log, Out: p.out}
	started := p.now()
	result := engine.Run(ctx, queries)
	finished := p.now()

	sentinel := p.cfg.Report.Sentinel
	for _, b := range batches {
		path := filepath.Join(p.cfg.Report.OutputDir, b.Output)
		recs := result.ForEcosystem(b.Ecosystem)
		if err := report.Write(path, recs, sentinel); err != nil {
			return fmt.Errorf("writing %s report: %w", b.Ecosystem, err)
		}
		fmt.Fprintf(p.out, "\n%s: wrote %s (%d datasets)\n", b.Ecosystem, path, len(recs))
		report.FormatTable(recs, sentinel, p.out)
	}

	if recorder != nil {
		recorder.Finish(finished)
		if err := recorder.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
			p.log.Error().Err(err).Msg("writing metrics textfile")
		}
	}

	if p.cfg.History.Path != "" {
		p.archive(context.WithoutCancel(ctx), started, finished, result.Records)
	}

	if result.Aborted != nil {
		p.log.Warn().Err(result.Aborted).Msg("run stopped early; remaining datasets reported as " + sentinel)
	}
	return nil
}

// batches loads the catalog and renders its queries.
func (p *pipeline) batches() ([]catalog.Batch, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if p.cfg.Catalog != "" {
		cat, err = catalog.Load(p.cfg.Catalog)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return nil, err
	}

	batches, err := cat.Batches(p.cfg.Ecosystem)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		for _, name := range b.Skipped {
			p.log.Debug().Str("ecosystem", b.Ecosystem).Str("dataset", name).Msg("non-identifier dataset name will not be queried")
		}
		p.log.Info().Str("ecosystem", b.Ecosystem).Int("datasets", len(b.Queries)).Int("skipped", len(b.Skipped)).Msg("catalog loaded")
	}
	return batches, nil
}

// archive appends the run to the history database. Failures are logged;
// the reports are already written.
func (p *pipeline) archive(ctx context.Context, started, finished time.Time, records []types.PopularityRecord) {
	store, err := history.NewStore(p.cfg.History.Path)
	if err != nil {
		p.log.Error().Err(err).Str("path", p.cfg.History.Path).Msg("opening history")
		return
	}
	defer store.Close()

	id, err := store.RecordRun(ctx, started, finished, records)
	if err != nil {
		p.log.Error().Err(err).Msg("archiving run")
		return
	}
	p.log.Info().Int64("run", id).Str("path", p.cfg.History.Path).Msg("run archived")
}
