package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const analysisSystemPrompt = "You analyze short-form videos and reply with strict JSON only."

// LLMAnalyzer asks a chat model for a structural breakdown of a transcript
type LLMAnalyzer struct {
	client  ChatCompleter
	prompts *PromptManager
	timeout time.Duration
}

// NewLLMAnalyzer creates an analyzer around one chat model
func NewLLMAnalyzer(client ChatCompleter, prompts *PromptManager, timeout time.Duration) *LLMAnalyzer {
	return &LLMAnalyzer{client: client, prompts: prompts, timeout: timeout}
}

// Analyze implements Analyzer
func (a *LLMAnalyzer) Analyze(ctx context.Context, meta *VideoMetadata, transcript *Transcript) (*Analysis, error) {
	if transcript == nil || strings.TrimSpace(transcript.Text) == "" {
		return nil, errors.New("transcript is empty")
	}

	prompt, err := a.prompts.CreatePrompt(NewAnalysisPromptData(meta, transcript))
	if err != nil {
		return nil, fmt.Errorf("creating prompt: %w", err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	content, err := a.client.Complete(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("requesting analysis: %w", err)
	}

	var analysis Analysis
	if err := DecodeLLMJSON(content, &analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}
	analysis.Model = a.client.Model()
	return &analysis, nil
}
