package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rtzll/clipscope/internal"
)

var (
	config    *internal.Config
	configErr error
	cfgFile   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clipscope [video URL or ID]",
	Short: "Break down short-form videos into reusable patterns",
	Long: `clipscope downloads short-form videos (YouTube Shorts, TikTok, Instagram Reels),
transcribes them and asks a language model how they are built: the hook, the
structure, the techniques, the tone and the call to action.

Analyses are saved as JSON so that trends can be tallied across many videos and
turned into new scripts.`,
	Example: `  # Analyze one video (default behavior)
  clipscope "https://www.youtube.com/shorts/dQw4w9WgXcQ"
  clipscope dQw4w9WgXcQ

  # Analyze a list of videos, four at a time
  clipscope batch urls.txt --concurrency 4

  # See what the analyzed videos have in common
  clipscope trends --top 5

  # Write a new script from those patterns
  clipscope generate "morning routines for night owls"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		return internal.HandleVerboseFlag(cmd, config)
	},
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arg := args[0]
		if internal.IsLikelyCommand(arg) {
			var suggestions []string
			for _, c := range cmd.Commands() {
				name := c.Name()
				if strings.Contains(name, arg) || (len(arg) <= len(name) && strings.Contains(arg, name[:len(arg)])) {
					suggestions = append(suggestions, name)
				}
			}

			if len(suggestions) > 0 {
				return fmt.Errorf("'%s' doesn't look like a video URL or ID. Did you mean: %s?", arg, strings.Join(suggestions, ", "))
			}
			return fmt.Errorf("'%s' doesn't look like a video URL or ID. Use --help to see available commands", arg)
		}

		return runAnalyze(cmd, arg)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First interrupt cancels running work so batches can drain and still write
	// their summary; a second one exits immediately.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		if _, ok := <-sigCh; !ok {
			return
		}
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Finishing up, press Ctrl+C again to force quit...")
		cancel()

		if _, ok := <-sigCh; ok {
			fmt.Fprintln(os.Stderr, "Forcing exit")
			os.Exit(130)
		}
	}()

	rootCmd.SetContext(ctx)
	err := rootCmd.Execute()

	if config != nil {
		cleanupTemp(config.TempDir)
	}
	return err
}

// cleanupTemp removes leftover audio chunks, giving up after a few seconds
func cleanupTemp(tempDir string) {
	cleanupDone := make(chan struct{})
	go func() {
		if err := internal.CleanupTempDir(tempDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error cleaning up temporary files: %v\n", err)
		}
		close(cleanupDone)
	}()

	select {
	case <-cleanupDone:
	case <-time.After(3 * time.Second):
		fmt.Fprintln(os.Stderr, "Warning: Cleanup timed out")
	}
}

// initConfig runs after flag parsing so --config is honored
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load .env: %v\n", err)
	}

	config, configErr = internal.InitConfig(cfgFile)
	if configErr != nil {
		return
	}

	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		configErr = fmt.Errorf("creating XDG directories: %w", err)
		return
	}

	created, err := internal.EnsureDefaultConfig(config.ConfigDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	} else if created && !config.Quiet {
		fmt.Fprintf(os.Stderr, "Created default configuration in %s\n", config.ConfigDir)
	}

	if err := internal.EnsureDefaultPrompts(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompts: %v\n", err)
	}
}

// newApp builds the application for commands that talk to yt-dlp
func newApp(cmd *cobra.Command) *internal.App {
	internal.EnsureYtDlp(cmd.Context())
	return internal.NewApp(config)
}

func init() {
	cobra.OnInitialize(initConfig)

	internal.AddAnalysisFlags(rootCmd)
	rootCmd.Flags().Bool("json", false, "Print the stored analysis as JSON instead of Markdown")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress bars and status messages")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/clipscope/config.toml)")
}
