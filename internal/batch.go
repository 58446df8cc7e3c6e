package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyInput is returned when a batch is started without any URLs
var ErrEmptyInput = errors.New("batch input is empty: at least one URL is required")

// Downloader fetches a video and its metadata to a local file
type Downloader interface {
	Download(ctx context.Context, videoURL string) (*DownloadResult, error)
}

// AudioExtractor pulls the audio track out of a downloaded video
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
}

// AudioReleaser is implemented by extractors whose audio files are scratch space
// that can be removed once transcription is over
type AudioReleaser interface {
	Release(audioPath string) error
}

// Transcriber turns an audio file into timestamped text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Transcript, error)
}

// Analyzer produces a structural analysis of a transcript
type Analyzer interface {
	Analyze(ctx context.Context, meta *VideoMetadata, transcript *Transcript) (*Analysis, error)
}

// ResultStore persists per-item results and the batch summary
type ResultStore interface {
	EnsureDir(dir string) error
	WriteItem(dir, id string, record *AnalysisRecord) (string, error)
	WriteSummary(dir string, result *BatchResult) (string, error)
}

// ItemEvent reports a status transition of one work item
type ItemEvent struct {
	Index  int
	Total  int
	URL    string
	Status ItemStatus
	Error  string
}

// BatchObserver receives item events. Events arrive from several workers at once,
// so implementations must be safe for concurrent use.
type BatchObserver interface {
	OnItemEvent(event ItemEvent)
}

// BatchObserverFunc adapts a function to BatchObserver
type BatchObserverFunc func(ItemEvent)

func (f BatchObserverFunc) OnItemEvent(event ItemEvent) { f(event) }

// BatchConfig controls a single batch run
type BatchConfig struct {
	Concurrency  int
	OutputDir    string
	StageTimeout time.Duration // zero disables the per-stage deadline
	SkipSummary  bool          // keep only the per-item files, as single-URL analyses do
}

// BatchProcessor runs URLs through download, transcription and analysis with bounded concurrency
type BatchProcessor struct {
	downloader  Downloader
	extractor   AudioExtractor
	transcriber Transcriber
	analyzer    Analyzer
	store       ResultStore
	observer    BatchObserver
	logger      *slog.Logger
	now         func() time.Time
}

// BatchOption customizes a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithObserver registers a progress observer
func WithObserver(observer BatchObserver) BatchOption {
	return func(p *BatchProcessor) {
		p.observer = observer
	}
}

// WithBatchLogger sets the structured logger
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(p *BatchProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the time source (useful for tests)
func WithClock(now func() time.Time) BatchOption {
	return func(p *BatchProcessor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewBatchProcessor wires the pipeline collaborators into a processor
func NewBatchProcessor(downloader Downloader, extractor AudioExtractor, transcriber Transcriber, analyzer Analyzer, store ResultStore, options ...BatchOption) *BatchProcessor {
	p := &BatchProcessor{
		downloader:  downloader,
		extractor:   extractor,
		transcriber: transcriber,
		analyzer:    analyzer,
		store:       store,
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Run processes every URL and returns one terminal work item per URL in input order.
// Only an empty input or an uncreatable output directory abort the batch; stage failures
// are recorded on the affected item. A summary write failure is returned together with
// the complete result.
func (p *BatchProcessor) Run(ctx context.Context, urls []string, cfg BatchConfig) (*BatchResult, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyInput
	}

	concurrency := max(cfg.Concurrency, 1)
	if err := p.store.EnsureDir(cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &BatchResult{
		ID:          uuid.NewString(),
		OutputDir:   cfg.OutputDir,
		Concurrency: concurrency,
		Workers:     min(concurrency, len(urls)),
		Items:       make([]WorkItem, len(urls)),
		StartedAt:   p.now(),
	}
	for i, u := range urls {
		result.Items[i] = WorkItem{URL: u, Status: StatusPending}
	}

	logger := p.logger.With("batch", result.ID)
	logger.Info("batch started", "items", len(urls), "workers", result.Workers)

	// next is the shared queue: each Add hands out a distinct index
	var next atomic.Int64
	var wg sync.WaitGroup
	for w := range result.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx, logger.With("worker", w), result.Items, &next, cfg)
		}()
	}
	wg.Wait()

	result.CompletedAt = p.now()
	result.tally()
	logger.Info("batch finished", "successful", result.Successful, "failed", result.Failed,
		"elapsed", result.CompletedAt.Sub(result.StartedAt))

	if cfg.SkipSummary {
		return result, nil
	}
	summaryPath, err := p.store.WriteSummary(cfg.OutputDir, result)
	if err != nil {
		return result, fmt.Errorf("writing batch summary: %w", err)
	}
	logger.Debug("batch summary written", "path", summaryPath)

	return result, nil
}

// work claims items until the queue is exhausted
func (p *BatchProcessor) work(ctx context.Context, logger *slog.Logger, items []WorkItem, next *atomic.Int64, cfg BatchConfig) {
	for {
		idx := int(next.Add(1) - 1)
		if idx >= len(items) {
			return
		}
		item := &items[idx]

		// after cancellation the remaining items are drained as failed
		if err := ctx.Err(); err != nil {
			item.StartedAt = p.now()
			p.fail(logger.With("index", idx, "url", item.URL), idx, len(items), item, fmt.Errorf("cancelled: %w", err))
			continue
		}

		p.process(ctx, logger, idx, len(items), item, cfg)
	}
}

// process runs the three stages for one item and persists its result
func (p *BatchProcessor) process(ctx context.Context, logger *slog.Logger, idx, total int, item *WorkItem, cfg BatchConfig) {
	item.StartedAt = p.now()
	item.Result = &ItemResult{}
	logger = logger.With("index", idx, "url", item.URL)

	defer func() {
		if r := recover(); r != nil {
			p.fail(logger, idx, total, item, fmt.Errorf("panic: %v", r))
		}
	}()

	p.advance(idx, total, item, StatusDownloading)
	download, err := withStageTimeout(ctx, cfg.StageTimeout, func(ctx context.Context) (*DownloadResult, error) {
		return p.downloader.Download(ctx, item.URL)
	})
	if err == nil && download == nil {
		err = errors.New("downloader returned no result")
	}
	if err != nil {
		p.fail(logger, idx, total, item, fmt.Errorf("download: %w", err))
		return
	}
	item.Result.Meta = download.Meta
	item.Result.VideoPath = download.VideoPath

	p.advance(idx, total, item, StatusTranscribing)
	audioPath, err := withStageTimeout(ctx, cfg.StageTimeout, func(ctx context.Context) (string, error) {
		return p.extractor.ExtractAudio(ctx, download.VideoPath)
	})
	if err != nil {
		p.fail(logger, idx, total, item, fmt.Errorf("extracting audio: %w", err))
		return
	}
	item.Result.AudioPath = audioPath
	defer p.releaseAudio(logger, audioPath)

	transcript, err := withStageTimeout(ctx, cfg.StageTimeout, func(ctx context.Context) (*Transcript, error) {
		return p.transcriber.Transcribe(ctx, audioPath)
	})
	if err == nil && transcript == nil {
		err = errors.New("transcriber returned no transcript")
	}
	if err != nil {
		p.fail(logger, idx, total, item, fmt.Errorf("transcribe: %w", err))
		return
	}
	item.Result.Transcript = transcript

	p.advance(idx, total, item, StatusAnalyzing)
	analysis, err := withStageTimeout(ctx, cfg.StageTimeout, func(ctx context.Context) (*Analysis, error) {
		return p.analyzer.Analyze(ctx, download.Meta, transcript)
	})
	if err == nil && analysis == nil {
		err = errors.New("analyzer returned no analysis")
	}
	if err != nil {
		p.fail(logger, idx, total, item, fmt.Errorf("analyze: %w", err))
		return
	}
	item.Result.Analysis = analysis

	record := &AnalysisRecord{
		URL:        item.URL,
		Meta:       download.Meta,
		Transcript: transcript,
		Analysis:   analysis,
		AnalyzedAt: p.now(),
	}
	path, err := p.store.WriteItem(cfg.OutputDir, ResultID(idx, item.URL, download.Meta), record)
	if err != nil {
		p.fail(logger, idx, total, item, fmt.Errorf("persisting result: %w", err))
		return
	}
	item.Result.ResultFile = path

	item.CompletedAt = p.now()
	p.advance(idx, total, item, StatusCompleted)
	logger.Info("item completed", "file", path, "elapsed", item.CompletedAt.Sub(item.StartedAt))
}

func (p *BatchProcessor) releaseAudio(logger *slog.Logger, audioPath string) {
	releaser, ok := p.extractor.(AudioReleaser)
	if !ok {
		return
	}
	if err := releaser.Release(audioPath); err != nil {
		logger.Warn("failed to remove extracted audio", "path", audioPath, "error", err)
	}
}

func (p *BatchProcessor) advance(idx, total int, item *WorkItem, status ItemStatus) {
	item.Status = status
	p.notify(idx, total, item)
}

func (p *BatchProcessor) fail(logger *slog.Logger, idx, total int, item *WorkItem, err error) {
	item.Status = StatusFailed
	item.Error = err.Error()
	item.CompletedAt = p.now()
	logger.Warn("item failed", "status", item.Status, "error", err)
	p.notify(idx, total, item)
}

func (p *BatchProcessor) notify(idx, total int, item *WorkItem) {
	if p.observer == nil {
		return
	}
	p.observer.OnItemEvent(ItemEvent{
		Index:  idx,
		Total:  total,
		URL:    item.URL,
		Status: item.Status,
		Error:  item.Error,
	})
}

// withStageTimeout runs fn under an optional deadline
func withStageTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// ResultID derives the stable file identifier for an item: the resolved video ID,
// else the ID parsed from the URL, else its position in the batch
func ResultID(idx int, videoURL string, meta *VideoMetadata) string {
	if meta != nil {
		if id := SafeFileID(meta.ID); id != "" {
			return id
		}
	}
	if parsed := ParseURL(videoURL); parsed.IsValid() {
		if id := SafeFileID(parsed.ID); id != "" {
			return id
		}
	}
	return fmt.Sprintf("item-%d", idx+1)
}
