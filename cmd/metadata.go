package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:   "metadata [URL or ID]",
	Short: "Get metadata of a short-form video",
	Example: `  # Get metadata of a video
  clipscope metadata "https://www.instagram.com/reel/C1a2B3c4D5e/"
  clipscope metadata dQw4w9WgXcQ

  # Save metadata to file
  clipscope metadata dQw4w9WgXcQ -o metadata.json

  # Format output as pretty JSON
  clipscope metadata dQw4w9WgXcQ --pretty`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parsed := internal.ParseURL(args[0])
		if !parsed.IsValid() {
			return fmt.Errorf("'%s' is not a supported video URL: %w", args[0], parsed.Error)
		}

		app := newApp(cmd)
		metadata, err := app.Metadata(cmd.Context(), parsed.NormalizedURL)
		if err != nil {
			return err
		}

		var jsonData []byte
		pretty, _ := cmd.Flags().GetBool("pretty")
		if pretty {
			jsonData, err = json.MarshalIndent(metadata, "", "  ")
		} else {
			jsonData, err = json.Marshal(metadata)
		}
		if err != nil {
			return fmt.Errorf("error converting metadata to JSON: %w", err)
		}

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			return os.WriteFile(outputFile, jsonData, 0644)
		}

		fmt.Println(string(jsonData))
		return nil
	},
}

func init() {
	metadataCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	metadataCmd.Flags().Bool("pretty", false, "Format output as pretty JSON")
	rootCmd.AddCommand(metadataCmd)
}
