package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Analyze every video URL listed in a file",
	Long: `Analyze a list of short-form videos with a bounded pool of workers.

The file holds one URL per line; blank lines and lines starting with # are ignored.
Each finished video is saved right away as analysis-<id>.json in the output
directory, and batch-summary-<timestamp>.json is written once all videos are done.
A failing video never stops the others. The command exits non-zero when any
video failed.`,
	Example: `  # Analyze with the configured concurrency
  clipscope batch urls.txt

  # Eight at a time into a project folder
  clipscope batch urls.txt -c 8 -o ./analyses

  # Give up on any stage that takes longer than five minutes
  clipscope batch urls.txt --stage-timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ApplyBatchFlags(cmd, config); err != nil {
			return err
		}
		if err := internal.ApplyAnalysisFlags(cmd, config); err != nil {
			return err
		}

		urls, err := internal.ReadURLFile(args[0])
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("%s: %w", args[0], internal.ErrEmptyInput)
		}

		if err := internal.ValidateProviders(config); err != nil {
			return err
		}
		if err := internal.CheckTools("ffmpeg", "ffprobe"); err != nil {
			return err
		}

		app := newApp(cmd)
		result, err := app.RunBatch(cmd.Context(), urls, app.BatchConfig())
		if result == nil {
			return err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

		if err := app.RecordHistory(cmd.Context(), result); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to record batch history: %v\n", err)
		}

		printBatchSummary(result)

		if result.Failed > 0 {
			return fmt.Errorf("%d of %d videos failed", result.Failed, len(result.Items))
		}
		return nil
	},
}

func printBatchSummary(result *internal.BatchResult) {
	elapsed := result.CompletedAt.Sub(result.StartedAt).Round(100 * time.Millisecond)
	if !config.Quiet {
		fmt.Printf("Processed %d videos with %d workers in %s: %d succeeded, %d failed\n",
			len(result.Items), result.Workers, elapsed, result.Successful, result.Failed)
		fmt.Printf("Results saved to %s\n", result.OutputDir)
	}

	failed := result.FailedItems()
	if len(failed) == 0 {
		return
	}

	rows := make([][]string, 0, len(failed))
	for i, item := range result.Items {
		if item.Status != internal.StatusFailed {
			continue
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), item.URL, truncate(item.Error, 100)})
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, internal.RenderTable([]string{"#", "URL", "Error"}, rows,
		[]internal.ColumnAlignment{internal.AlignRight, internal.AlignLeft, internal.AlignLeft}))
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func init() {
	internal.AddBatchFlags(batchCmd)
	internal.AddAnalysisFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}
