package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [summary file]",
	Short: "Render a batch summary as Markdown",
	Example: `  # Show the latest batch
  clipscope report

  # Save a specific batch as a Markdown file
  clipscope report batch-summary-2024-05-01T12-30-00-000Z.json --output report.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}

		app := internal.NewApp(config)
		result, err := app.LoadReport(path)
		if err != nil {
			return err
		}
		markdown := internal.BatchReportMarkdown(result)

		if outputFile, _ := cmd.Flags().GetString("output"); outputFile != "" {
			if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			if !config.Quiet {
				fmt.Printf("Report written to %s\n", outputFile)
			}
			return nil
		}

		rendered, err := internal.RenderMarkdown(markdown)
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	reportCmd.Flags().String("output", "", "Write Markdown to a file instead of the terminal")
	rootCmd.AddCommand(reportCmd)
}
