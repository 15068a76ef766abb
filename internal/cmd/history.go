package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/simdem/internal/config"
	"github.com/harrison/simdem/internal/history"
	"github.com/harrison/simdem/internal/models"
)

// NewHistoryCommand creates the 'simdem history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded test runs",
		Long: `List the test runs recorded in the history database, most recent first.

Examples:
  simdem history --limit 5
  simdem history --document docs/intro/README.md --failed
  simdem history --show 12      # results of run 12
  simdem history --stats        # totals per document
  simdem history --prune 30     # delete runs older than 30 days`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .simdem/config.yaml)")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().String("document", "", "Only list runs of this document")
	cmd.Flags().Bool("failed", false, "Only list runs with failed tests")
	cmd.Flags().Int64("show", 0, "Show the test results of a run")
	cmd.Flags().Bool("stats", false, "Show totals per document")
	cmd.Flags().Int("prune", 0, "Delete runs older than this many days")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	output := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dbPath, err := config.ResolvePath(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("failed to get history database path: %w", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(output, "No test runs recorded yet.")
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	flags := cmd.Flags()

	if days, _ := flags.GetInt("prune"); days > 0 {
		n, err := store.CleanupOldRuns(ctx, days)
		if err != nil {
			return err
		}
		fmt.Fprintf(output, "Deleted %d run(s) older than %d days\n", n, days)
		return nil
	}
	if id, _ := flags.GetInt64("show"); id > 0 {
		return showRun(ctx, output, store, id)
	}
	if stats, _ := flags.GetBool("stats"); stats {
		return showStats(ctx, output, store)
	}

	var filter history.Filter
	filter.Limit, _ = flags.GetInt("limit")
	filter.Document, _ = flags.GetString("document")
	filter.FailedOnly, _ = flags.GetBool("failed")

	runs, err := store.ListRuns(ctx, filter)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(output, "No matching test runs.")
		return nil
	}
	printRuns(output, runs)
	return nil
}

func printRuns(w io.Writer, runs []history.RunRecord) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "%-5s  %-19s  %-8s  %6s  %6s  %8s  %s\n", "ID", "STARTED", "MODE", "PASSED", "FAILED", "DURATION", "DOCUMENT")
	for _, r := range runs {
		status := green.Sprintf("%6d", r.Failed)
		if r.Failed > 0 {
			status = red.Sprintf("%6d", r.Failed)
		}
		fmt.Fprintf(w, "%-5d  %-19s  %-8s  %6d  %s  %8s  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode,
			r.Passed,
			status,
			r.Duration.Round(time.Millisecond),
			r.Document,
		)
	}
}

func showRun(ctx context.Context, w io.Writer, store *history.Store, id int64) error {
	results, err := store.GetResults(ctx, id)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(w, "No test results recorded for run %d\n", id)
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "\n=== Test Results for Run %d: %s ===\n\n", id, results[0].Document)
	for i, r := range results {
		fmt.Fprintf(w, "Test #%d: ", i+1)
		if r.Passed {
			green.Fprint(w, "PASS")
		} else {
			red.Fprint(w, "FAIL")
		}
		fmt.Fprintf(w, " (similarity %.2f, threshold %s)\n", r.Ratio, formatThreshold(r))
		fmt.Fprintf(w, "  Command: %s\n", oneLine(r.Command))
		if !r.Passed {
			fmt.Fprintf(w, "  Expected: %s\n", oneLine(r.Expected))
			fmt.Fprintf(w, "  Actual:   %s\n", oneLine(r.Actual))
		}
	}
	return nil
}

func showStats(ctx context.Context, w io.Writer, store *history.Store) error {
	stats, err := store.GetDocumentStats(ctx)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(w, "No test runs recorded yet.")
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "%-5s  %6s  %6s  %9s  %-19s  %s\n", "RUNS", "PASSED", "FAILED", "PASS RATE", "LAST RUN", "DOCUMENT")
	for _, st := range stats {
		rate := 100.0
		if total := st.Passed + st.Failed; total > 0 {
			rate = float64(st.Passed) / float64(total) * 100
		}
		rateText := fmt.Sprintf("%8.1f%%", rate)
		switch {
		case rate >= 90:
			rateText = green.Sprint(rateText)
		case rate >= 60:
			rateText = yellow.Sprint(rateText)
		default:
			rateText = red.Sprint(rateText)
		}
		fmt.Fprintf(w, "%-5d  %6d  %6d  %s  %-19s  %s\n",
			st.Runs, st.Passed, st.Failed, rateText,
			st.LastRun.Local().Format("2006-01-02 15:04:05"), st.Document)
	}
	return nil
}

func formatThreshold(r models.TestResult) string {
	if math.IsNaN(r.Threshold) {
		return "invalid"
	}
	return fmt.Sprintf("%.2f", r.Threshold)
}

// oneLine flattens text for single-line display
func oneLine(s string) string {
	const maxLen = 120
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
