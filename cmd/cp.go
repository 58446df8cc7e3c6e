package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

// cpCmd copies an analysis to the system clipboard instead of printing to stdout.
var cpCmd = &cobra.Command{
	Use:   "cp [URL or ID]",
	Short: "Copy a video analysis to the clipboard",
	Long: `Copy the stored analysis of a video to the clipboard as JSON.
The video is analyzed first when no stored analysis exists.`,
	Example: `  # Copy the analysis JSON
  clipscope cp "https://www.youtube.com/shorts/dQw4w9WgXcQ"
  clipscope cp dQw4w9WgXcQ

  # Copy it as Markdown
  clipscope cp dQw4w9WgXcQ --markdown`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := internal.NewApp(config)

		record, err := app.StoredAnalysis(args[0])
		if err != nil {
			if err := internal.ValidateProviders(config); err != nil {
				return err
			}
			record, err = newApp(cmd).Analysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}
		}

		var content string
		if markdown, _ := cmd.Flags().GetBool("markdown"); markdown {
			content = internal.AnalysisMarkdown(record)
		} else {
			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding analysis: %w", err)
			}
			content = string(data)
		}

		if err := clipboard.WriteAll(content); err != nil {
			return fmt.Errorf("copying analysis to clipboard: %w", err)
		}

		if !config.Quiet {
			fmt.Println("Analysis copied to clipboard")
		}

		return nil
	},
}

func init() {
	cpCmd.Flags().Bool("markdown", false, "Copy Markdown instead of JSON")
	rootCmd.AddCommand(cpCmd)
}
