package internal

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubTranscriber struct {
	transcript *Transcript
	err        error
	calls      int
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	s.calls++
	return s.transcript, s.err
}

type stubChat struct {
	model   string
	content string
	err     error
	prompts []string
}

func (s *stubChat) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	return s.content, s.err
}

func (s *stubChat) Model() string { return s.model }

func TestTranscriberChainFallsBack(t *testing.T) {
	first := &stubTranscriber{err: errors.New("rate limited")}
	second := &stubTranscriber{transcript: &Transcript{Text: "hello"}}
	third := &stubTranscriber{transcript: &Transcript{Text: "unused"}}

	chain := NewTranscriberChain(nil,
		Named[Transcriber]{Name: "openai", Provider: first},
		Named[Transcriber]{Name: "local", Provider: second},
		Named[Transcriber]{Name: "spare", Provider: third},
	)
	transcript, err := chain.Transcribe(context.Background(), "/tmp/a.mp3")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if transcript.Text != "hello" || transcript.Provider != "local" {
		t.Errorf("transcript = %+v", transcript)
	}
	if third.calls != 0 {
		t.Error("chain kept going after a success")
	}
}

func TestTranscriberChainJoinsErrors(t *testing.T) {
	chain := NewTranscriberChain(nil,
		Named[Transcriber]{Name: "openai", Provider: &stubTranscriber{err: errors.New("quota exceeded")}},
		Named[Transcriber]{Name: "local", Provider: &stubTranscriber{err: errors.New("whisper not installed")}},
	)
	_, err := chain.Transcribe(context.Background(), "/tmp/a.mp3")
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, part := range []string{"all providers failed", "openai: quota exceeded", "local: whisper not installed"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("error %q missing %q", err, part)
		}
	}
}

func TestChainWithoutProviders(t *testing.T) {
	_, err := NewAnalyzerChain(nil).Analyze(context.Background(), &VideoMetadata{}, &Transcript{Text: "x"})
	if !errors.Is(err, ErrNoProviders) {
		t.Fatalf("err = %v, want ErrNoProviders", err)
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	stub := &stubTranscriber{transcript: &Transcript{Text: "late"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTranscriberChain(nil, Named[Transcriber]{Name: "local", Provider: stub}).Transcribe(ctx, "/tmp/a.mp3")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if stub.calls != 0 {
		t.Error("provider called with a cancelled context")
	}
}

func TestChatChainReportsWinningModel(t *testing.T) {
	chain := NewChatChain(nil,
		Named[ChatCompleter]{Name: "openai", Provider: &stubChat{model: "gpt-4o-mini", err: errors.New("401")}},
		Named[ChatCompleter]{Name: "ollama", Provider: &stubChat{model: "llama3.1", content: "ok"}},
	)
	content, err := chain.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "ok" || chain.Model() != "llama3.1" {
		t.Errorf("content = %q, model = %q", content, chain.Model())
	}
}
