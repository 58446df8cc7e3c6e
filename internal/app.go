package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// VideoSource downloads videos and looks up their metadata
type VideoSource interface {
	Downloader
	Metadata(ctx context.Context, videoURL string) (*VideoMetadata, error)
}

// App holds the application state and dependencies
type App struct {
	source      VideoSource
	extractor   AudioExtractor
	transcriber Transcriber
	analyzer    Analyzer
	chat        ChatCompleter
	store       *FileStore
	config      *Config
	ui          UIManager
	logger      *slog.Logger
}

// NewApp wires the pipeline from config: yt-dlp, ffmpeg, and the transcriber and
// analyzer fallback chains in their configured order
func NewApp(config *Config, options ...AppOption) *App {
	cmdRunner := &DefaultCommandRunner{}
	logger := NewLogger(config, os.Stderr)

	audio := NewAudio(cmdRunner, filepath.Join(config.CacheDir, "audio"), config.TempDir)
	providers := newProviders(config, cmdRunner, audio, logger)

	app := &App{
		source:      NewYtDlp(config.CacheDir, componentLogger(logger, "ytdlp")),
		extractor:   audio,
		transcriber: providers.transcriber,
		analyzer:    providers.analyzer,
		chat:        providers.chat,
		store:       NewFileStore(),
		config:      config,
		ui:          NewUIManager(config.Verbose, config.Quiet),
		logger:      logger,
	}

	for _, option := range options {
		option(app)
	}

	return app
}

// AppOption customizes App creation
type AppOption func(*App)

// WithVideoSource sets a custom downloader
func WithVideoSource(source VideoSource) AppOption {
	return func(a *App) {
		a.source = source
	}
}

// WithAudioExtractor sets a custom audio extractor
func WithAudioExtractor(extractor AudioExtractor) AppOption {
	return func(a *App) {
		a.extractor = extractor
	}
}

// WithTranscriber replaces the transcriber chain
func WithTranscriber(transcriber Transcriber) AppOption {
	return func(a *App) {
		a.transcriber = transcriber
	}
}

// WithAnalyzer replaces the analyzer chain
func WithAnalyzer(analyzer Analyzer) AppOption {
	return func(a *App) {
		a.analyzer = analyzer
	}
}

// WithChat replaces the chat chain used for script generation
func WithChat(chat ChatCompleter) AppOption {
	return func(a *App) {
		a.chat = chat
	}
}

// WithUI sets the user interface manager
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

type providerSet struct {
	transcriber Transcriber
	analyzer    Analyzer
	chat        ChatCompleter
}

// newProviders builds the fallback chains. OpenAI entries are skipped when no API
// key is configured so a keyless setup still works with local providers.
func newProviders(config *Config, cmdRunner CommandRunner, audio *Audio, logger *slog.Logger) providerSet {
	var openaiClient *OpenAIClient
	if config.OpenAIAPIKey != "" {
		openaiClient = NewOpenAIClient(config.OpenAIAPIKey, config.AnalysisModel)
	}
	analysisPrompts := NewPromptManager(config.ConfigDir, AnalysisPromptFile, config.AnalysisPrompt)

	var transcribers []Named[Transcriber]
	for _, name := range config.Transcribers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "openai":
			if openaiClient == nil {
				logger.Debug("skipping openai transcriber: no API key")
				continue
			}
			transcribers = append(transcribers, Named[Transcriber]{Name: "openai", Provider: NewWhisperTranscriber(
				openaiClient, audio, WhisperLimit, config.WhisperTimeout, componentLogger(logger, "whisper"))})
		case "local":
			transcribers = append(transcribers, Named[Transcriber]{Name: "local", Provider: NewLocalWhisper(
				cmdRunner, config.LocalWhisperBin, config.LocalWhisperModel, filepath.Join(config.TempDir, "whisper"))})
		}
	}

	var analyzers []Named[Analyzer]
	var chats []Named[ChatCompleter]
	for _, name := range config.Analyzers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "openai":
			if openaiClient == nil {
				logger.Debug("skipping openai analyzer: no API key")
				continue
			}
			analyzers = append(analyzers, Named[Analyzer]{Name: "openai", Provider: NewLLMAnalyzer(openaiClient, analysisPrompts, config.AnalysisTimeout)})
			chats = append(chats, Named[ChatCompleter]{Name: "openai", Provider: openaiClient})
		case "ollama":
			ollama := NewOllamaClient(config.OllamaURL, config.OllamaModel)
			analyzers = append(analyzers, Named[Analyzer]{Name: "ollama", Provider: NewLLMAnalyzer(ollama, analysisPrompts, config.AnalysisTimeout)})
			chats = append(chats, Named[ChatCompleter]{Name: "ollama", Provider: ollama})
		}
	}

	return providerSet{
		transcriber: NewTranscriberChain(componentLogger(logger, "transcribe"), transcribers...),
		analyzer:    NewAnalyzerChain(componentLogger(logger, "analyze"), analyzers...),
		chat:        NewChatChain(componentLogger(logger, "chat"), chats...),
	}
}

// Config returns the configuration the app was built with
func (app *App) Config() *Config {
	return app.config
}

// RunBatch runs urls through the pipeline with a progress bar while holding the
// output directory lock
func (app *App) RunBatch(ctx context.Context, urls []string, cfg BatchConfig) (*BatchResult, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyInput
	}
	if err := app.store.EnsureDir(cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	lock, err := LockOutputDir(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			app.logger.Warn("releasing output lock", "error", err)
		}
	}()

	return app.run(ctx, urls, cfg)
}

// run drives the pool with a progress bar. Item files are written atomically, so
// runs that share an output directory never see each other's partial files.
func (app *App) run(ctx context.Context, urls []string, cfg BatchConfig) (*BatchResult, error) {
	progress := NewBatchProgress(app.ui, len(urls))
	processor := NewBatchProcessor(app.source, app.extractor, app.transcriber, app.analyzer, app.store,
		WithObserver(progress),
		WithBatchLogger(componentLogger(app.logger, "batch")),
	)

	result, err := processor.Run(ctx, urls, cfg)
	progress.Finish()
	return result, err
}

// BatchConfig returns the batch settings from the loaded configuration
func (app *App) BatchConfig() BatchConfig {
	return BatchConfig{
		Concurrency:  app.config.Concurrency,
		OutputDir:    app.config.OutputDir,
		StageTimeout: app.config.StageTimeout,
	}
}

// AnalyzeURL runs a single URL through the same pool and returns its stored record.
// It neither takes the output directory lock nor writes a batch summary, so it can run
// alongside a batch or other analyses of the same directory.
func (app *App) AnalyzeURL(ctx context.Context, videoURL string) (*AnalysisRecord, error) {
	cfg := app.BatchConfig()
	cfg.Concurrency = 1
	cfg.SkipSummary = true

	result, err := app.run(ctx, []string{videoURL}, cfg)
	if err != nil {
		return nil, err
	}

	item := result.Items[0]
	if item.Status != StatusCompleted {
		return nil, fmt.Errorf("analyzing %s: %s", videoURL, item.Error)
	}
	return LoadAnalysisRecord(item.Result.ResultFile)
}

// StoredAnalysis returns the persisted analysis for a URL or id, if any
func (app *App) StoredAnalysis(arg string) (*AnalysisRecord, error) {
	id := SafeFileID(arg)
	if parsed := ParseURL(arg); parsed.IsValid() {
		id = SafeFileID(parsed.ID)
	}
	path := filepath.Join(app.config.OutputDir, AnalysisFileName(id))
	if !FileExists(path) {
		return nil, os.ErrNotExist
	}
	return LoadAnalysisRecord(path)
}

// Analysis returns the stored analysis for arg, analyzing the video first when none exists
func (app *App) Analysis(ctx context.Context, arg string) (*AnalysisRecord, error) {
	record, err := app.StoredAnalysis(arg)
	if err == nil {
		app.ui.Verbose("Using stored analysis %s\n", record.URL)
		return record, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	parsed := ParseURL(arg)
	if !parsed.IsValid() {
		return nil, fmt.Errorf("'%s' is not a supported video URL: %w", arg, parsed.Error)
	}
	return app.AnalyzeURL(ctx, parsed.NormalizedURL)
}

// Metadata fetches video details with a status spinner
func (app *App) Metadata(ctx context.Context, videoURL string) (*VideoMetadata, error) {
	spinner := app.ui.NewSpinner("Fetching video metadata...")
	defer spinner.Finish()

	metadata, err := app.source.Metadata(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}
	return metadata, nil
}

// Trends tallies every stored analysis in the output directory
func (app *App) Trends(top int) (*Trends, error) {
	records, err := LoadAnalysisRecords(app.config.OutputDir)
	if err != nil {
		return nil, err
	}
	return ComputeTrends(records, top), nil
}

// GenerateScript writes a new script about topic from the current trends
func (app *App) GenerateScript(ctx context.Context, topic string, durationSeconds, top int) (*Script, error) {
	trends, err := app.Trends(top)
	if err != nil {
		return nil, err
	}
	if trends.Videos == 0 {
		app.ui.Println("No stored analyses yet; generating without trend data")
	}

	spinner := app.ui.NewSpinner("Generating script...")
	defer spinner.Finish()

	prompts := NewPromptManager(app.config.ConfigDir, ScriptPromptFile, app.config.ScriptPrompt)
	generator := NewScriptGenerator(app.chat, prompts, app.config.AnalysisTimeout)
	return generator.Generate(ctx, topic, durationSeconds, trends)
}

// LoadReport reads the named batch summary, or the newest one when path is empty
func (app *App) LoadReport(path string) (*BatchResult, error) {
	if path == "" {
		latest, err := LatestSummaryFile(app.config.OutputDir)
		if err != nil {
			return nil, err
		}
		path = latest
	}
	return LoadSummary(path)
}

// RecordHistory stores a finished batch in the SQLite ledger
func (app *App) RecordHistory(ctx context.Context, result *BatchResult) error {
	history, err := OpenHistory(ctx, app.config.HistoryDB)
	if err != nil {
		return err
	}
	defer history.Close()
	return history.Record(ctx, result)
}
