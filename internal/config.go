package internal

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName is used for XDG directories and the environment prefix
const AppName = "clipscope"

// Config holds application settings
type Config struct {
	// Batch settings
	Concurrency  int           `toml:"concurrency"`
	OutputDir    string        `toml:"output_dir"`
	StageTimeout time.Duration `toml:"stage_timeout"`

	// Providers
	Transcribers      []string      `toml:"transcribers"`
	Analyzers         []string      `toml:"analyzers"`
	AnalysisModel     string        `toml:"analysis_model"`
	AnalysisTimeout   time.Duration `toml:"analysis_timeout"`
	WhisperTimeout    time.Duration `toml:"whisper_timeout"`
	OpenAIAPIKey      string        `toml:"-"`
	OllamaURL         string        `toml:"ollama_url"`
	OllamaModel       string        `toml:"ollama_model"`
	LocalWhisperBin   string        `toml:"local_whisper_bin"`
	LocalWhisperModel string        `toml:"local_whisper_model"`
	AnalysisPrompt    string        `toml:"analysis_prompt"`
	ScriptPrompt      string        `toml:"script_prompt"`

	// Output
	Verbose       bool   `toml:"verbose"`
	Quiet         bool   `toml:"quiet"`
	LogFormat     string `toml:"log_format"`
	MCPLogEnabled bool   `toml:"mcp_log"`

	// Fixed XDG paths (not configurable)
	ConfigDir string `toml:"-"`
	DataDir   string `toml:"-"`
	CacheDir  string `toml:"-"`
	TempDir   string `toml:"-"`
	HistoryDB string `toml:"-"`
}

//go:embed config.toml analysis_prompt.txt script_prompt.txt
var defaultFS embed.FS

// ensureDefaultFile creates configDir/embedFilename from the embedded default
// unless it already exists
func ensureDefaultFile(configDir, embedFilename, description string) (bool, error) {
	filePath := filepath.Join(configDir, embedFilename)
	if FileExists(filePath) {
		return false, nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return false, fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return false, fmt.Errorf("writing default %s: %w", description, err)
	}
	return true, nil
}

// EnsureDefaultConfig materializes config.toml in the config directory on first run
func EnsureDefaultConfig(configDir string) (bool, error) {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompts materializes the prompt templates in the config directory
func EnsureDefaultPrompts(configDir string) error {
	for _, name := range []string{AnalysisPromptFile, ScriptPromptFile} {
		if _, err := ensureDefaultFile(configDir, name, "prompt template "+name); err != nil {
			return err
		}
	}
	return nil
}

// InitConfig loads defaults, the config file and CLIPSCOPE_* environment variables.
// configFile overrides the XDG location when non-empty.
func InitConfig(configFile string) (*Config, error) {
	configDir := filepath.Join(xdg.ConfigHome, AppName)
	dataDir := filepath.Join(xdg.DataHome, AppName)
	cacheDir := filepath.Join(xdg.CacheHome, AppName)

	v := newViper(dataDir)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	config := configFromViper(v)
	config.ConfigDir = configDir
	config.DataDir = dataDir
	config.CacheDir = cacheDir
	config.TempDir = filepath.Join(cacheDir, "temp_chunks")
	config.HistoryDB = filepath.Join(dataDir, "history.db")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newViper(dataDir string) *viper.Viper {
	v := viper.New()

	v.SetDefault("concurrency", 3)
	v.SetDefault("output_dir", filepath.Join(dataDir, "analyses"))
	v.SetDefault("stage_timeout", time.Duration(0))
	v.SetDefault("transcribers", []string{"openai", "local"})
	v.SetDefault("analyzers", []string{"openai", "ollama"})
	v.SetDefault("analysis_model", "gpt-4o-mini")
	v.SetDefault("analysis_timeout", 2*time.Minute)
	v.SetDefault("whisper_timeout", 10*time.Minute)
	v.SetDefault("ollama_url", DefaultOllamaURL)
	v.SetDefault("ollama_model", "llama3.1")
	v.SetDefault("local_whisper_bin", "whisper")
	v.SetDefault("local_whisper_model", "base")
	v.SetDefault("analysis_prompt", "")
	v.SetDefault("script_prompt", "")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("log_format", "text")
	v.SetDefault("mcp_log", false)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// OPENAI_API_KEY is honored without the prefix as well
	_ = v.BindEnv("openai_api_key", "CLIPSCOPE_OPENAI_API_KEY", "OPENAI_API_KEY")

	return v
}

func configFromViper(v *viper.Viper) *Config {
	return &Config{
		Concurrency:       v.GetInt("concurrency"),
		OutputDir:         expandHome(v.GetString("output_dir")),
		StageTimeout:      v.GetDuration("stage_timeout"),
		Transcribers:      v.GetStringSlice("transcribers"),
		Analyzers:         v.GetStringSlice("analyzers"),
		AnalysisModel:     v.GetString("analysis_model"),
		AnalysisTimeout:   v.GetDuration("analysis_timeout"),
		WhisperTimeout:    v.GetDuration("whisper_timeout"),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		OllamaURL:         v.GetString("ollama_url"),
		OllamaModel:       v.GetString("ollama_model"),
		LocalWhisperBin:   v.GetString("local_whisper_bin"),
		LocalWhisperModel: v.GetString("local_whisper_model"),
		AnalysisPrompt:    v.GetString("analysis_prompt"),
		ScriptPrompt:      v.GetString("script_prompt"),
		Verbose:           v.GetBool("verbose"),
		Quiet:             v.GetBool("quiet"),
		LogFormat:         v.GetString("log_format"),
		MCPLogEnabled:     v.GetBool("mcp_log"),
	}
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.StageTimeout < 0 {
		return fmt.Errorf("stage_timeout must not be negative, got %s", c.StageTimeout)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	for _, name := range c.Transcribers {
		if !isKnownProvider(name, transcriberNames) {
			return fmt.Errorf("unknown transcriber %q (available: %s)", name, strings.Join(transcriberNames, ", "))
		}
	}
	for _, name := range c.Analyzers {
		if !isKnownProvider(name, analyzerNames) {
			return fmt.Errorf("unknown analyzer %q (available: %s)", name, strings.Join(analyzerNames, ", "))
		}
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

var (
	transcriberNames = []string{"openai", "local"}
	analyzerNames    = []string{"openai", "ollama"}
)

func isKnownProvider(name string, known []string) bool {
	for _, k := range known {
		if strings.EqualFold(strings.TrimSpace(name), k) {
			return true
		}
	}
	return false
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return filepath.Join(xdg.Home, strings.TrimPrefix(path, "~"))
	}
	return path
}
