package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoProviders is returned by a chain with nothing configured in it
var ErrNoProviders = errors.New("no providers configured")

// Named pairs a provider with the name it is reported under
type Named[P any] struct {
	Name     string
	Provider P
}

// runChain tries providers in order; the first success wins and the name of the
// provider that produced it is returned. When every provider fails the errors are joined.
func runChain[P, R any](ctx context.Context, logger *slog.Logger, op string, providers []Named[P], call func(context.Context, P) (R, error)) (R, string, error) {
	var zero R
	if len(providers) == 0 {
		return zero, "", fmt.Errorf("%s: %w", op, ErrNoProviders)
	}

	var errs []error
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := call(ctx, p.Provider)
		if err == nil {
			return result, p.Name, nil
		}
		logger.Warn("provider failed", "op", op, "provider", p.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	return zero, "", fmt.Errorf("%s: all providers failed: %w", op, errors.Join(errs...))
}

// TranscriberChain is a Transcriber that falls back through several providers
type TranscriberChain struct {
	providers []Named[Transcriber]
	logger    *slog.Logger
}

// NewTranscriberChain builds a chain; providers are tried in the given order
func NewTranscriberChain(logger *slog.Logger, providers ...Named[Transcriber]) *TranscriberChain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TranscriberChain{providers: providers, logger: logger}
}

// Transcribe implements Transcriber
func (c *TranscriberChain) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	transcript, name, err := runChain(ctx, c.logger, "transcribe", c.providers,
		func(ctx context.Context, t Transcriber) (*Transcript, error) {
			return t.Transcribe(ctx, audioPath)
		})
	if err != nil {
		return nil, err
	}
	if transcript == nil {
		return nil, fmt.Errorf("transcribe: %s returned no transcript", name)
	}
	if transcript.Provider == "" {
		transcript.Provider = name
	}
	return transcript, nil
}

// AnalyzerChain is an Analyzer that falls back through several providers
type AnalyzerChain struct {
	providers []Named[Analyzer]
	logger    *slog.Logger
}

// NewAnalyzerChain builds a chain; providers are tried in the given order
func NewAnalyzerChain(logger *slog.Logger, providers ...Named[Analyzer]) *AnalyzerChain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AnalyzerChain{providers: providers, logger: logger}
}

// Analyze implements Analyzer
func (c *AnalyzerChain) Analyze(ctx context.Context, meta *VideoMetadata, transcript *Transcript) (*Analysis, error) {
	analysis, name, err := runChain(ctx, c.logger, "analyze", c.providers,
		func(ctx context.Context, a Analyzer) (*Analysis, error) {
			return a.Analyze(ctx, meta, transcript)
		})
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, fmt.Errorf("analyze: %s returned no analysis", name)
	}
	if analysis.Provider == "" {
		analysis.Provider = name
	}
	return analysis, nil
}

// ChatChain is a ChatCompleter that falls back through several chat models
type ChatChain struct {
	providers []Named[ChatCompleter]
	logger    *slog.Logger

	mu        sync.Mutex
	lastModel string
}

// NewChatChain builds a chain; providers are tried in the given order
func NewChatChain(logger *slog.Logger, providers ...Named[ChatCompleter]) *ChatChain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ChatChain{providers: providers, logger: logger}
}

// Complete implements ChatCompleter
func (c *ChatChain) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var model string
	content, _, err := runChain(ctx, c.logger, "chat", c.providers,
		func(ctx context.Context, cc ChatCompleter) (string, error) {
			model = cc.Model()
			return cc.Complete(ctx, systemPrompt, userPrompt)
		})
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.lastModel = model
	c.mu.Unlock()
	return content, nil
}

// Model returns the model that produced the last successful completion
func (c *ChatChain) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastModel
}
