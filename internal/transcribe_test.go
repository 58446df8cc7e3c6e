package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeRunner records commands and lets each test decide what a command does
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	run   func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.run == nil {
		return nil, nil
	}
	return f.run(name, args)
}

func (f *fakeRunner) commands(name string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if c[0] == name {
			out = append(out, c)
		}
	}
	return out
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

type fakeWhisperClient struct {
	calls int
	err   error
}

func (f *fakeWhisperClient) CreateTranscription(ctx context.Context, file io.Reader) (*Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(file); err != nil {
		return nil, err
	}
	return &Transcript{
		Text:     fmt.Sprintf("chunk %d", f.calls),
		Segments: []Segment{{Start: 0, End: 2, Text: fmt.Sprintf("chunk %d", f.calls)}},
		Duration: 30,
		Language: "english",
	}, nil
}

func writeAudio(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte(strings.Repeat("a", size)), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWhisperTranscriberSingleUpload(t *testing.T) {
	client := &fakeWhisperClient{}
	runner := &fakeRunner{}
	audio := NewAudio(runner, t.TempDir(), t.TempDir())

	transcript, err := NewWhisperTranscriber(client, audio, WhisperLimit, 0, nil).Transcribe(context.Background(), writeAudio(t, 64))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("uploads = %d, want 1", client.calls)
	}
	if len(runner.calls) != 0 {
		t.Errorf("small file was split: %v", runner.calls)
	}
	if transcript.Text != "chunk 1" || transcript.Duration != 30 {
		t.Errorf("transcript = %+v", transcript)
	}
}

func TestWhisperTranscriberSplitsLargeFiles(t *testing.T) {
	tempDir := t.TempDir()
	runner := &fakeRunner{run: func(name string, args []string) ([]byte, error) {
		switch name {
		case "ffprobe":
			return []byte("90.0\n"), nil
		case "ffmpeg":
			output := args[len(args)-1]
			return nil, os.WriteFile(output, []byte("chunk"), 0644)
		}
		return nil, fmt.Errorf("unexpected command %s", name)
	}}
	client := &fakeWhisperClient{}
	audio := NewAudio(runner, t.TempDir(), tempDir)

	transcript, err := NewWhisperTranscriber(client, audio, 10, 0, nil).Transcribe(context.Background(), writeAudio(t, 30))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if client.calls != 3 {
		t.Fatalf("uploads = %d, want 3", client.calls)
	}
	if transcript.Text != "chunk 1\nchunk 2\nchunk 3" {
		t.Errorf("text = %q", transcript.Text)
	}
	wantStarts := []float64{0, 30, 60}
	for i, seg := range transcript.Segments {
		if seg.Start != wantStarts[i] || seg.End != wantStarts[i]+2 {
			t.Errorf("segment %d = %+v, want start %v", i, seg, wantStarts[i])
		}
	}
	if transcript.Duration != 90 {
		t.Errorf("duration = %v, want 90", transcript.Duration)
	}

	for _, cmd := range runner.commands("ffmpeg") {
		if got := argAfter(cmd, "-t"); got != "30" {
			t.Errorf("chunk duration = %s, want 30", got)
		}
	}
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("%d chunk files left behind", len(entries))
	}
}

func TestWhisperTranscriberPropagatesUploadErrors(t *testing.T) {
	client := &fakeWhisperClient{err: errors.New("invalid api key")}
	audio := NewAudio(&fakeRunner{}, t.TempDir(), t.TempDir())

	_, err := NewWhisperTranscriber(client, audio, WhisperLimit, 0, nil).Transcribe(context.Background(), writeAudio(t, 10))
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("err = %v", err)
	}
}

func TestLocalWhisperTranscribe(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "whisper")
	runner := &fakeRunner{run: func(name string, args []string) ([]byte, error) {
		dir := argAfter(args, "--output_dir")
		doc := `{"text":" Wait for it. ","language":"en","segments":[{"start":0,"end":1.5,"text":" Wait"},{"start":1.5,"end":2.25,"text":" for it. "}]}`
		return nil, os.WriteFile(filepath.Join(dir, "clip.json"), []byte(doc), 0644)
	}}

	transcript, err := NewLocalWhisper(runner, "", "", outputDir).Transcribe(context.Background(), writeAudio(t, 10))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if transcript.Text != "Wait for it." || transcript.Language != "en" {
		t.Errorf("transcript = %+v", transcript)
	}
	if transcript.Duration != 2.25 {
		t.Errorf("duration = %v, want the last segment end", transcript.Duration)
	}

	cmd := runner.calls[0]
	if cmd[0] != "whisper" || argAfter(cmd, "--model") != "base" || argAfter(cmd, "--output_format") != "json" {
		t.Errorf("command = %v", cmd)
	}
	if dir := argAfter(cmd, "--output_dir"); filepath.Dir(dir) != outputDir {
		t.Errorf("output dir = %s, want a directory under %s", dir, outputDir)
	}
	if entries, _ := os.ReadDir(outputDir); len(entries) != 0 {
		t.Errorf("whisper output was not cleaned up: %d entries", len(entries))
	}
}

func TestLocalWhisperFailure(t *testing.T) {
	runner := &fakeRunner{run: func(name string, args []string) ([]byte, error) {
		return []byte("No module named whisper"), errors.New("exit status 1")
	}}

	_, err := NewLocalWhisper(runner, "whisper", "tiny", t.TempDir()).Transcribe(context.Background(), writeAudio(t, 10))
	if err == nil || !strings.Contains(err.Error(), "No module named whisper") {
		t.Fatalf("err = %v, want the command output", err)
	}
}

func TestLocalWhisperMissingAudio(t *testing.T) {
	runner := &fakeRunner{}
	_, err := NewLocalWhisper(runner, "whisper", "tiny", t.TempDir()).Transcribe(context.Background(), "/nonexistent/clip.mp3")
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(runner.calls) != 0 {
		t.Error("whisper invoked without an audio file")
	}
}

func TestAudioExtract(t *testing.T) {
	video := filepath.Join(t.TempDir(), "abc123.mp4")
	if err := os.WriteFile(video, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	audioDir := filepath.Join(t.TempDir(), "audio")
	runner := &fakeRunner{}

	out, err := NewAudio(runner, audioDir, t.TempDir()).ExtractAudio(context.Background(), video)
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if filepath.Base(out) != "abc123.mp3" || filepath.Dir(filepath.Dir(out)) != audioDir {
		t.Errorf("output = %s", out)
	}
	cmd := runner.calls[0]
	if cmd[0] != "ffmpeg" || argAfter(cmd, "-i") != video || argAfter(cmd, "-ar") != "16000" {
		t.Errorf("command = %v", cmd)
	}
}

func TestAudioExtractSameVideoTwice(t *testing.T) {
	video := filepath.Join(t.TempDir(), "abc123.mp4")
	if err := os.WriteFile(video, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	audioDir := filepath.Join(t.TempDir(), "audio")
	runner := &fakeRunner{run: func(name string, args []string) ([]byte, error) {
		return nil, os.WriteFile(args[len(args)-1], []byte("audio"), 0644)
	}}
	audio := NewAudio(runner, audioDir, t.TempDir())

	first, err := audio.ExtractAudio(context.Background(), video)
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	second, err := audio.ExtractAudio(context.Background(), video)
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if first == second {
		t.Fatalf("both extractions wrote %s", first)
	}

	if err := audio.Release(first); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if FileExists(first) || !FileExists(second) {
		t.Error("Release removed the wrong audio")
	}
	if err := audio.Release(video); err == nil {
		t.Error("Release accepted a file outside the audio directory")
	}
	if !FileExists(video) {
		t.Error("Release removed the source video")
	}
}

func TestAudioExtractMissingVideo(t *testing.T) {
	if _, err := NewAudio(&fakeRunner{}, t.TempDir(), t.TempDir()).ExtractAudio(context.Background(), "/nope.mp4"); err == nil {
		t.Fatal("expected an error")
	}
}
