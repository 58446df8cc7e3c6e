package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WhisperLimit is the maximum file size accepted by OpenAI's Whisper API (25 MiB)
const WhisperLimit int64 = 25 << 20

// WhisperTranscriber transcribes audio with the hosted Whisper API, splitting files
// that exceed the upload limit
type WhisperTranscriber struct {
	client       WhisperClient
	audio        *Audio
	whisperLimit int64
	timeout      time.Duration
	logger       *slog.Logger
}

// NewWhisperTranscriber creates a hosted Whisper transcriber
func NewWhisperTranscriber(client WhisperClient, audio *Audio, whisperLimit int64, timeout time.Duration, logger *slog.Logger) *WhisperTranscriber {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WhisperTranscriber{
		client:       client,
		audio:        audio,
		whisperLimit: whisperLimit,
		timeout:      timeout,
		logger:       logger,
	}
}

// Transcribe implements Transcriber
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioFile string) (*Transcript, error) {
	if w.client == nil {
		return nil, ValidateOpenAIAPIKey("")
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	info, err := os.Stat(audioFile)
	if err != nil {
		return nil, fmt.Errorf("getting audio file info: %w", err)
	}

	numChunks := int(math.Ceil(float64(info.Size()) / float64(w.whisperLimit)))

	chunks := []AudioChunk{{Path: audioFile}}
	if numChunks > 1 {
		chunks, err = w.audio.Split(ctx, audioFile, numChunks)
		if err != nil {
			return nil, fmt.Errorf("splitting audio: %w", err)
		}
		defer RemoveChunks(chunks)
	}

	transcript, err := w.processAudioChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("transcribing audio: %w", err)
	}
	return transcript, nil
}

// processAudioChunks transcribes chunks sequentially and shifts each chunk's segments
// by its offset in the original file
func (w *WhisperTranscriber) processAudioChunks(ctx context.Context, chunks []AudioChunk) (*Transcript, error) {
	merged := &Transcript{}
	texts := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		file, err := os.Open(chunk.Path)
		if err != nil {
			return nil, fmt.Errorf("opening chunk %s: %w", chunk.Path, err)
		}

		part, err := w.client.CreateTranscription(ctx, file)
		if closeErr := file.Close(); closeErr != nil {
			w.logger.Warn("failed to close chunk", "path", chunk.Path, "error", closeErr)
		}
		if err != nil {
			return nil, fmt.Errorf("transcribing chunk %d: %w", i+1, err)
		}

		texts = append(texts, part.Text)
		for _, s := range part.Segments {
			merged.Segments = append(merged.Segments, Segment{
				Start: s.Start + chunk.Offset,
				End:   s.End + chunk.Offset,
				Text:  s.Text,
			})
		}
		merged.Duration = max(merged.Duration, chunk.Offset+part.Duration)
		if merged.Language == "" {
			merged.Language = part.Language
		}

		w.logger.Debug("transcribed chunk", "chunk", i+1, "of", len(chunks))
	}

	merged.Text = strings.Join(texts, "\n")
	if merged.Duration == 0 && len(merged.Segments) > 0 {
		merged.Duration = merged.Segments[len(merged.Segments)-1].End
	}
	return merged, nil
}

// LocalWhisper runs the openai-whisper command line tool
type LocalWhisper struct {
	cmdRunner CommandRunner
	binary    string
	model     string
	outputDir string
}

// NewLocalWhisper creates a transcriber backed by a local whisper binary
func NewLocalWhisper(cmdRunner CommandRunner, binary, model, outputDir string) *LocalWhisper {
	if binary == "" {
		binary = "whisper"
	}
	if model == "" {
		model = "base"
	}
	return &LocalWhisper{
		cmdRunner: cmdRunner,
		binary:    binary,
		model:     model,
		outputDir: outputDir,
	}
}

// Transcribe implements Transcriber
func (l *LocalWhisper) Transcribe(ctx context.Context, audioFile string) (*Transcript, error) {
	if !FileExists(audioFile) {
		return nil, fmt.Errorf("audio file not found: %s", audioFile)
	}
	if err := EnsureDirs(l.outputDir); err != nil {
		return nil, fmt.Errorf("creating whisper output directory: %w", err)
	}

	// whisper names its output after the audio file, so each run writes to its own directory
	runDir, err := os.MkdirTemp(l.outputDir, "run-*")
	if err != nil {
		return nil, fmt.Errorf("creating whisper output directory: %w", err)
	}
	defer os.RemoveAll(runDir)

	output, err := l.cmdRunner.Run(ctx, l.binary,
		audioFile,
		"--model", l.model,
		"--output_format", "json",
		"--output_dir", runDir,
		"--verbose", "False")
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w\nOutput: %s", l.binary, err, strings.TrimSpace(string(output)))
	}

	base := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	return parseWhisperJSON(filepath.Join(runDir, base+".json"))
}

// parseWhisperJSON reads the JSON document written by the whisper CLI
func parseWhisperJSON(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading whisper output: %w", err)
	}

	var payload whisperVerboseResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing whisper output: %w", err)
	}

	transcript := &Transcript{
		Text:     strings.TrimSpace(payload.Text),
		Segments: trimSegments(payload.Segments),
		Duration: payload.Duration,
		Language: payload.Language,
	}
	if transcript.Duration == 0 && len(transcript.Segments) > 0 {
		transcript.Duration = transcript.Segments[len(transcript.Segments)-1].End
	}
	return transcript, nil
}
