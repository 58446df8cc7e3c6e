package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [video URL or ID]",
	Short: "Analyze the structure of one short-form video",
	Example: `  # Analyze a YouTube Short
  clipscope analyze "https://www.youtube.com/shorts/dQw4w9WgXcQ"

  # Analyze a TikTok with a different model
  clipscope analyze "https://www.tiktok.com/@user/video/7301234567890123456" --model gpt-4o

  # Print the raw analysis record
  clipscope analyze dQw4w9WgXcQ --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args[0])
	},
}

// runAnalyze sends one URL through the batch pool and prints the result
func runAnalyze(cmd *cobra.Command, arg string) error {
	if err := internal.ApplyAnalysisFlags(cmd, config); err != nil {
		return err
	}
	if err := internal.ValidateProviders(config); err != nil {
		return err
	}
	if err := internal.CheckTools("ffmpeg", "ffprobe"); err != nil {
		return err
	}

	parsed := internal.ParseURL(arg)
	if !parsed.IsValid() {
		return fmt.Errorf("'%s' is not a supported video URL: %w", arg, parsed.Error)
	}

	app := newApp(cmd)
	record, err := app.AnalyzeURL(cmd.Context(), parsed.NormalizedURL)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding analysis: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	rendered, err := internal.RenderMarkdown(internal.AnalysisMarkdown(record))
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}

func init() {
	internal.AddAnalysisFlags(analyzeCmd)
	analyzeCmd.Flags().Bool("json", false, "Print the stored analysis as JSON instead of Markdown")
	rootCmd.AddCommand(analyzeCmd)
}
