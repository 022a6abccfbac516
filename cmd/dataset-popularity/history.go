// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/dataset-popularity/internal/history"
	"github.com/pdiddy/dataset-popularity/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [dataset]",
	Short: "Show archived runs or one dataset's counts over time",
	Long: `History reads the run archive written when history.path (or --history)
is set. Without arguments it lists recent runs; with a dataset name it
shows that dataset's count in every archived run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("ecosystem", "", "restrict a dataset trend to one ecosystem")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("history.path")
	if path == "" {
		return types.Configf("no history database: set history.path or pass --history")
	}
	store, err := history.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		ecosystem, _ := cmd.Flags().GetString("ecosystem")
		obs, err := store.Trend(cmd.Context(), ecosystem, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(w, obs)
		}
		formatTrend(w, args[0], obs)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, runs)
	}
	formatRuns(w, runs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs archived.")
		return
	}
	fmt.Fprintf(w, "%-6s  %-20s  %-10s  %-8s  %s\n", "Run", "Started", "Duration", "Counted", "Failed")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range runs {
		fmt.Fprintf(w, "%-6d  %-20s  %-10s  %-8d  %d\n",
			r.ID, r.StartedAt.Format(time.DateTime), r.FinishedAt.Sub(r.StartedAt).Round(time.Second), r.Counted, r.Failed)
	}
}

func formatTrend(w io.Writer, dataset string, obs []history.Observation) {
	if len(obs) == 0 {
		fmt.Fprintf(w, "No observations of %s.\n", dataset)
		return
	}
	fmt.Fprintf(w, "%-6s  %-20s  %-10s  %s\n", "Run", "Started", "Ecosystem", "Count")
	fmt.Fprintln(w, strings.Repeat("-", 50))
	for _, o := range obs {
		count := "failed"
		if o.Count != nil {
			count = strconv.Itoa(*o.Count)
		}
		fmt.Fprintf(w, "%-6d  %-20s  %-10s  %s\n", o.RunID, o.StartedAt.Format(time.DateTime), o.Ecosystem, count)
	}
}
