package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Write a new script and storyboard from observed trends",
	Example: `  # A 45 second script
  clipscope generate "budget travel in Japan"

  # A 30 second script built from the top 3 patterns, saved as JSON
  clipscope generate "sourdough for beginners" --duration 30 --top 3 --json -o script.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			config.AnalysisModel = model
		}
		if prompt, _ := cmd.Flags().GetString("prompt"); prompt != "" {
			config.ScriptPrompt = prompt
		}
		if err := internal.ValidateProviders(config); err != nil {
			return err
		}

		duration, _ := cmd.Flags().GetInt("duration")
		top, _ := cmd.Flags().GetInt("top")
		topic := strings.Join(args, " ")

		app := internal.NewApp(config)
		script, err := app.GenerateScript(cmd.Context(), topic, duration, top)
		if err != nil {
			return err
		}

		var output string
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			data, err := json.MarshalIndent(script, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding script: %w", err)
			}
			output = string(data)
		} else {
			output = internal.ScriptMarkdown(script)
		}

		if outputFile, _ := cmd.Flags().GetString("output"); outputFile != "" {
			return os.WriteFile(outputFile, []byte(output), 0644)
		}

		if !asJSON {
			rendered, err := internal.RenderMarkdown(output)
			if err != nil {
				return err
			}
			output = rendered
		}
		fmt.Println(output)
		return nil
	},
}

func init() {
	generateCmd.Flags().Int("duration", 45, "Target length in seconds")
	generateCmd.Flags().Int("top", 5, "Patterns per category fed into the prompt")
	generateCmd.Flags().Bool("json", false, "Print the script as JSON")
	generateCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	generateCmd.Flags().String("model", "", "OpenAI model to use")
	generateCmd.Flags().String("prompt", "", "Custom script prompt (string or file path)")
	rootCmd.AddCommand(generateCmd)
}
