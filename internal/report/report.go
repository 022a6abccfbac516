// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report serializes popularity records to CSV, one row per
// dataset in input order, with a sentinel in place of failed counts.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/dataset-popularity/pkg/types"
)

// DefaultSentinel marks a dataset whose count could not be obtained.
const DefaultSentinel = "NA"

// Header is the fixed CSV header row.
var Header = []string{"dataset", "count"}

// Encode writes the header and one row per record to w. Failed records
// carry sentinel in the count column; an empty sentinel means
// DefaultSentinel.
func Encode(w io.Writer, records []types.PopularityRecord, sentinel string) error {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		count := sentinel
		if !r.Failed() {
			count = strconv.Itoa(r.Count)
		}
		if err := cw.Write([]string{r.Dataset, count}); err != nil {
			return fmt.Errorf("writing row for %s: %w", r.Dataset, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write replaces the file at path with the CSV encoding of records. The
// report is written to a temporary file in the same directory and renamed
// into place, so an interrupted write never leaves a truncated report.
func Write(path string, records []types.PopularityRecord, sentinel string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	encErr := Encode(tmpFile, records, sentinel)
	closeErr := tmpFile.Close()
	if encErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("encoding report %s: %w", path, encErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting report permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// FormatTable writes records as a human-readable table to w. Rows keep
// input order; counts get thousands separators and approximate counts are
// prefixed with "~".
func FormatTable(records []types.PopularityRecord, sentinel string, w io.Writer) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No datasets queried.")
		return
	}
	if sentinel == "" {
		sentinel = DefaultSentinel
	}

	fmt.Fprintf(w, "%-10s  %-30s  %10s  %s\n", "Ecosystem", "Dataset", "Count", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, r := range records {
		count := sentinel
		if !r.Failed() {
			count = humanize.Comma(int64(r.Count))
			if r.Incomplete {
				count = "~" + count
			}
		}
		fmt.Fprintf(w, "%-10s  %-30s  %10s  %s\n",
			truncate(r.Ecosystem, 10), truncate(r.Dataset, 30), count, r.Query)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
