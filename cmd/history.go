package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous batch runs",
	Example: `  # The last 20 batches
  clipscope history

  # Every item of one batch
  clipscope history --batch 3f2c9a1e-...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := internal.OpenHistory(cmd.Context(), config.HistoryDB)
		if err != nil {
			return err
		}
		defer history.Close()

		if batchID, _ := cmd.Flags().GetString("batch"); batchID != "" {
			items, err := history.Items(cmd.Context(), batchID)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return fmt.Errorf("no batch %s in history", batchID)
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				detail := item.ResultFile
				if item.Status == internal.StatusFailed {
					detail = truncate(item.Error, 80)
				}
				rows = append(rows, []string{strconv.Itoa(item.Index + 1), string(item.Status), item.URL, detail})
			}
			fmt.Println(internal.RenderTable([]string{"#", "Status", "URL", "Result"}, rows,
				[]internal.ColumnAlignment{internal.AlignRight}))
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := history.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No batches recorded yet")
			return nil
		}

		rows := make([][]string, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, []string{
				run.ID,
				run.StartedAt.Local().Format("2006-01-02 15:04"),
				run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String(),
				strconv.Itoa(run.Total),
				strconv.Itoa(run.Successful),
				strconv.Itoa(run.Failed),
				run.OutputDir,
			})
		}
		fmt.Println(internal.RenderTable(
			[]string{"Batch", "Started", "Took", "Videos", "OK", "Failed", "Output"}, rows,
			[]internal.ColumnAlignment{internal.AlignLeft, internal.AlignLeft, internal.AlignRight, internal.AlignRight, internal.AlignRight, internal.AlignRight}))
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Number of batches to show (0 shows all)")
	historyCmd.Flags().String("batch", "", "Show the items of one batch")
	rootCmd.AddCommand(historyCmd)
}
