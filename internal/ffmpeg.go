package internal

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Audio handles audio file operations using FFmpeg
type Audio struct {
	cmdRunner CommandRunner
	audioDir  string
	tempDir   string
}

// NewAudio creates a new audio processor writing extracted audio to audioDir
// and chunks to tempDir
func NewAudio(cmdRunner CommandRunner, audioDir, tempDir string) *Audio {
	return &Audio{
		cmdRunner: cmdRunner,
		audioDir:  audioDir,
		tempDir:   tempDir,
	}
}

// ExtractAudio converts the audio track of a video into a small mono mp3. Every call
// gets its own directory, so the same video can be extracted by several workers at once.
// Callers remove it with Release.
func (a *Audio) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if !FileExists(videoPath) {
		return "", fmt.Errorf("video file not found: %s", videoPath)
	}
	if err := EnsureDirs(a.audioDir); err != nil {
		return "", fmt.Errorf("creating audio directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	dir, err := os.MkdirTemp(a.audioDir, base+"-*")
	if err != nil {
		return "", fmt.Errorf("creating audio directory: %w", err)
	}
	output := filepath.Join(dir, base+".mp3")

	cmdOutput, err := a.cmdRunner.Run(ctx, "ffmpeg",
		"-v", "quiet",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "64k",
		"-y", output)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(cmdOutput))
	}
	return output, nil
}

// Release removes audio produced by ExtractAudio
func (a *Audio) Release(audioPath string) error {
	dir := filepath.Dir(audioPath)
	if filepath.Dir(dir) != filepath.Clean(a.audioDir) {
		return fmt.Errorf("%s was not extracted by this processor", audioPath)
	}
	return os.RemoveAll(dir)
}

// Duration returns the audio file duration in seconds
func (a *Audio) Duration(ctx context.Context, audioFile string) (float64, error) {
	output, err := a.cmdRunner.Run(ctx, "ffprobe",
		"-i", audioFile,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0")

	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(output))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration: %w", err)
	}

	return duration, nil
}

// AudioChunk is one piece of a split audio file and where it starts in the original
type AudioChunk struct {
	Path   string
	Offset float64
}

// Split divides an audio file into numChunks roughly equal pieces inside a fresh
// directory under tempDir. Callers remove the pieces with RemoveChunks.
func (a *Audio) Split(ctx context.Context, audioFile string, numChunks int) ([]AudioChunk, error) {
	duration, err := a.Duration(ctx, audioFile)
	if err != nil {
		return nil, fmt.Errorf("getting audio duration: %w", err)
	}

	if err := EnsureDirs(a.tempDir); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	dir, err := os.MkdirTemp(a.tempDir, "chunks-*")
	if err != nil {
		return nil, fmt.Errorf("creating chunk directory: %w", err)
	}

	chunkDuration := int(math.Ceil(duration / float64(numChunks)))
	chunks := make([]AudioChunk, 0, numChunks)

	for i := range numChunks {
		start := i * chunkDuration
		output := filepath.Join(dir, fmt.Sprintf("%s_chunk_%d.mp3", filepath.Base(audioFile), i))

		if err := a.Chunk(ctx, audioFile, start, chunkDuration, output); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("creating chunk %d: %w", i, err)
		}
		chunks = append(chunks, AudioChunk{Path: output, Offset: float64(start)})
	}

	return chunks, nil
}

// RemoveChunks deletes the pieces returned by Split together with their directory
func RemoveChunks(chunks []AudioChunk) {
	if len(chunks) == 0 {
		return
	}
	if err := os.RemoveAll(filepath.Dir(chunks[0].Path)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to remove audio chunks: %v\n", err)
	}
}

// Chunk extracts a segment from an audio file
func (a *Audio) Chunk(ctx context.Context, audioFile string, start, duration int, output string) error {
	cmdOutput, err := a.cmdRunner.Run(ctx, "ffmpeg",
		"-v", "quiet",
		"-i", audioFile,
		"-ss", strconv.Itoa(start),
		"-t", strconv.Itoa(duration),
		"-c:a", "copy",
		"-y", output)

	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(cmdOutput))
	}
	return nil
}

// CheckTools verifies that the external binaries used by the pipeline are on PATH
func CheckTools(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required tools not found on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}
