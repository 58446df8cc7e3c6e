package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

// trendsCmd represents the trends command
var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show recurring patterns across stored analyses",
	Example: `  # Top patterns in the default output directory
  clipscope trends

  # Top 3 per category from a project folder, as JSON
  clipscope trends -o ./analyses --top 3 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
			config.OutputDir = dir
		}
		top, _ := cmd.Flags().GetInt("top")

		app := internal.NewApp(config)
		trends, err := app.Trends(top)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			data, err := json.MarshalIndent(trends, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding trends: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if trends.Videos == 0 {
			fmt.Printf("No analyses found in %s. Run `clipscope batch` first.\n", config.OutputDir)
			return nil
		}
		fmt.Print(internal.RenderTrendsTable(trends))
		return nil
	},
}

func init() {
	trendsCmd.Flags().Int("top", 10, "Entries per category (0 shows all)")
	trendsCmd.Flags().Bool("json", false, "Print trends as JSON")
	trendsCmd.Flags().StringP("output-dir", "o", "", "Directory holding analysis files (default from config)")
	rootCmd.AddCommand(trendsCmd)
}
