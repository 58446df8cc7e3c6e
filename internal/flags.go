package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddBatchFlags adds flags that tune a batch run
func AddBatchFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("concurrency", "c", 0, "Videos processed at the same time (default from config)")
	cmd.Flags().StringP("output-dir", "o", "", "Directory for analysis and summary files (default from config)")
	cmd.Flags().Duration("stage-timeout", 0, "Deadline for each pipeline stage, e.g. 5m (0 uses config)")
}

// AddAnalysisFlags adds flags related to the LLM analyzers
func AddAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "OpenAI model to use for analysis")
	cmd.Flags().StringP("prompt", "p", "", "Custom analysis prompt (string or file path)")
}

// ApplyBatchFlags copies explicitly set batch flags over the config values
func ApplyBatchFlags(cmd *cobra.Command, config *Config) error {
	if f := cmd.Flags().Lookup("concurrency"); f != nil && f.Changed {
		concurrency, err := cmd.Flags().GetInt("concurrency")
		if err != nil {
			return fmt.Errorf("failed to get concurrency flag: %w", err)
		}
		if concurrency < 1 {
			return fmt.Errorf("--concurrency must be at least 1, got %d", concurrency)
		}
		config.Concurrency = concurrency
	}
	if f := cmd.Flags().Lookup("output-dir"); f != nil && f.Changed {
		dir, err := cmd.Flags().GetString("output-dir")
		if err != nil {
			return fmt.Errorf("failed to get output-dir flag: %w", err)
		}
		config.OutputDir = expandHome(dir)
	}
	if f := cmd.Flags().Lookup("stage-timeout"); f != nil && f.Changed {
		timeout, err := cmd.Flags().GetDuration("stage-timeout")
		if err != nil {
			return fmt.Errorf("failed to get stage-timeout flag: %w", err)
		}
		if timeout < 0 {
			return fmt.Errorf("--stage-timeout must not be negative")
		}
		config.StageTimeout = timeout
	}
	return nil
}

// ApplyAnalysisFlags copies --model and --prompt over the config values
func ApplyAnalysisFlags(cmd *cobra.Command, config *Config) error {
	if f := cmd.Flags().Lookup("model"); f != nil && f.Changed {
		model, err := cmd.Flags().GetString("model")
		if err != nil {
			return fmt.Errorf("failed to get model flag: %w", err)
		}
		config.AnalysisModel = model
	}
	if f := cmd.Flags().Lookup("prompt"); f != nil && f.Changed {
		prompt, err := cmd.Flags().GetString("prompt")
		if err != nil {
			return fmt.Errorf("failed to get prompt flag: %w", err)
		}
		config.AnalysisPrompt = prompt
	}
	return nil
}

// HandleVerboseFlag processes the --verbose and --quiet flags to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Changed {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return fmt.Errorf("failed to get verbose flag: %w", err)
		}
		config.Verbose = verbose
	}
	if f := cmd.Flags().Lookup("quiet"); f != nil && f.Changed {
		quiet, err := cmd.Flags().GetBool("quiet")
		if err != nil {
			return fmt.Errorf("failed to get quiet flag: %w", err)
		}
		config.Quiet = quiet
	}
	return nil
}

// ValidateProviders fails early when no transcriber or analyzer can run
func ValidateProviders(config *Config) error {
	usable := func(names []string, alwaysAvailable string) bool {
		for _, name := range names {
			if isKnownProvider(name, []string{alwaysAvailable}) {
				return true
			}
			if isKnownProvider(name, []string{"openai"}) && config.OpenAIAPIKey != "" {
				return true
			}
		}
		return false
	}

	if !usable(config.Transcribers, "local") {
		return fmt.Errorf("no usable transcriber in %v: add \"local\" or configure an OpenAI API key", config.Transcribers)
	}
	if !usable(config.Analyzers, "ollama") {
		return fmt.Errorf("no usable analyzer in %v: add \"ollama\" or configure an OpenAI API key", config.Analyzers)
	}
	return nil
}
