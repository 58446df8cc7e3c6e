package cmd

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

// effectiveConfig is the TOML view of the loaded settings; durations are written
// the way config.toml accepts them
type effectiveConfig struct {
	Concurrency       int      `toml:"concurrency"`
	OutputDir         string   `toml:"output_dir"`
	StageTimeout      string   `toml:"stage_timeout"`
	Transcribers      []string `toml:"transcribers"`
	Analyzers         []string `toml:"analyzers"`
	AnalysisModel     string   `toml:"analysis_model"`
	AnalysisTimeout   string   `toml:"analysis_timeout"`
	WhisperTimeout    string   `toml:"whisper_timeout"`
	OpenAIAPIKey      string   `toml:"openai_api_key"`
	OllamaURL         string   `toml:"ollama_url"`
	OllamaModel       string   `toml:"ollama_model"`
	LocalWhisperBin   string   `toml:"local_whisper_bin"`
	LocalWhisperModel string   `toml:"local_whisper_model"`
	AnalysisPrompt    string   `toml:"analysis_prompt"`
	ScriptPrompt      string   `toml:"script_prompt"`
	Verbose           bool     `toml:"verbose"`
	Quiet             bool     `toml:"quiet"`
	LogFormat         string   `toml:"log_format"`
	MCPLog            bool     `toml:"mcp_log"`
}

func newEffectiveConfig(c *internal.Config) effectiveConfig {
	return effectiveConfig{
		Concurrency:       c.Concurrency,
		OutputDir:         c.OutputDir,
		StageTimeout:      c.StageTimeout.String(),
		Transcribers:      c.Transcribers,
		Analyzers:         c.Analyzers,
		AnalysisModel:     c.AnalysisModel,
		AnalysisTimeout:   c.AnalysisTimeout.String(),
		WhisperTimeout:    c.WhisperTimeout.String(),
		OpenAIAPIKey:      maskSecret(c.OpenAIAPIKey),
		OllamaURL:         c.OllamaURL,
		OllamaModel:       c.OllamaModel,
		LocalWhisperBin:   c.LocalWhisperBin,
		LocalWhisperModel: c.LocalWhisperModel,
		AnalysisPrompt:    c.AnalysisPrompt,
		ScriptPrompt:      c.ScriptPrompt,
		Verbose:           c.Verbose,
		Quiet:             c.Quiet,
		LogFormat:         c.LogFormat,
		MCPLog:            c.MCPLogEnabled,
	}
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:3] + "..." + secret[len(secret)-4:]
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Example: `  # Show settings after config file, environment and .env are applied
  clipscope config`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := toml.Marshal(newEffectiveConfig(config))
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
