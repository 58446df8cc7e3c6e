package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// DefaultOllamaURL is the OpenAI-compatible endpoint of a local Ollama server
const DefaultOllamaURL = "http://localhost:11434/v1/"

// ChatCompleter sends a system and user prompt to a chat model and returns the reply text
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// WhisperClient transcribes a single audio upload
type WhisperClient interface {
	CreateTranscription(ctx context.Context, file io.Reader) (*Transcript, error)
}

// OpenAIClient wraps the official OpenAI Go SDK. The same client talks to Ollama
// through its OpenAI-compatible API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client for the OpenAI API
func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client, model: model}
}

// NewOllamaClient creates a client for a local Ollama server
func NewOllamaClient(baseURL, model string, opts ...option.RequestOption) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	// Ollama ignores the key but the SDK requires one
	opts = append([]option.RequestOption{option.WithBaseURL(baseURL), option.WithAPIKey("ollama")}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client, model: model}
}

// Model returns the chat model this client uses
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete implements ChatCompleter
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from %s", c.model)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty response from %s (finish_reason=%q)", c.model, resp.Choices[0].FinishReason)
	}
	return content, nil
}

// whisperVerboseResponse is the verbose_json transcription payload
type whisperVerboseResponse struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// CreateTranscription implements WhisperClient using whisper-1 with segment timestamps
func (c *OpenAIClient) CreateTranscription(ctx context.Context, file io.Reader) (*Transcript, error) {
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModelWhisper1,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, err
	}

	var verbose whisperVerboseResponse
	if raw := resp.RawJSON(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &verbose); err != nil {
			return nil, fmt.Errorf("parsing transcription response: %w", err)
		}
	}
	if verbose.Text == "" {
		verbose.Text = resp.Text
	}

	return &Transcript{
		Text:     strings.TrimSpace(verbose.Text),
		Segments: trimSegments(verbose.Segments),
		Duration: verbose.Duration,
		Language: verbose.Language,
	}, nil
}

func trimSegments(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		s.Text = strings.TrimSpace(s.Text)
		out = append(out, s)
	}
	return out
}
