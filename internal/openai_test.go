package internal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v2/option"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient("test-key", "gpt-4o-mini", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
}

func TestOpenAIClientComplete(t *testing.T) {
	var gotBody map[string]any
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  {\"tone\":\"calm\"}  "}}]
		}`)
	})

	content, err := client.Complete(context.Background(), "You analyze videos.", "Analyze this.")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != `{"tone":"calm"}` {
		t.Errorf("content = %q", content)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", gotBody["model"])
	}
	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("sent %d messages, want system and user", len(messages))
	}
}

func TestOpenAIClientCompleteEmptyReply(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"length","message":{"role":"assistant","content":""}}]}`)
	})

	_, err := client.Complete(context.Background(), "", "Analyze this.")
	if err == nil || !strings.Contains(err.Error(), "length") {
		t.Fatalf("err = %v, want empty response error with finish reason", err)
	}
}

func TestOpenAIClientCompleteServerError(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited","type":"rate_limit"}}`)
	})

	if _, err := client.Complete(context.Background(), "", "Analyze this."); err == nil {
		t.Fatal("expected an error for HTTP 429")
	}
}

func TestOpenAIClientCreateTranscription(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"text": " Stop scrolling. Here is why. ",
			"language": "english",
			"duration": 12.5,
			"segments": [
				{"id": 0, "start": 0.0, "end": 1.4, "text": " Stop scrolling."},
				{"id": 1, "start": 1.4, "end": 3.0, "text": " Here is why. "}
			]
		}`)
	})

	transcript, err := client.CreateTranscription(context.Background(), strings.NewReader("fake audio"))
	if err != nil {
		t.Fatalf("CreateTranscription: %v", err)
	}
	if transcript.Text != "Stop scrolling. Here is why." {
		t.Errorf("text = %q", transcript.Text)
	}
	if transcript.Duration != 12.5 || transcript.Language != "english" {
		t.Errorf("duration = %v, language = %q", transcript.Duration, transcript.Language)
	}
	if len(transcript.Segments) != 2 || transcript.Segments[1].Text != "Here is why." || transcript.Segments[1].Start != 1.4 {
		t.Errorf("segments = %+v", transcript.Segments)
	}
}

func TestNewOllamaClientDefaults(t *testing.T) {
	client := NewOllamaClient("", "llama3.1")
	if client.Model() != "llama3.1" {
		t.Errorf("model = %q", client.Model())
	}
}
