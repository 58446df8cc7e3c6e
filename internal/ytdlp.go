package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/sync/singleflight"
)

// ErrDownloadFailed marks a yt-dlp invocation that exited unsuccessfully
var ErrDownloadFailed = errors.New("yt-dlp download failed")

// videoFormat prefers a single progressive mp4 so no merge step is required
const videoFormat = "best[ext=mp4]/best"

// YtDlp downloads short-form videos and their metadata with yt-dlp. Concurrent
// downloads of the same video share a single yt-dlp run.
type YtDlp struct {
	videoDir    string
	metadataDir string
	logger      *slog.Logger

	downloads singleflight.Group
	fetch     func(ctx context.Context, videoURL, outputTemplate string) error
}

// NewYtDlp creates a downloader that stores videos and cached metadata under cacheDir
func NewYtDlp(cacheDir string, logger *slog.Logger) *YtDlp {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &YtDlp{
		videoDir:    filepath.Join(cacheDir, "videos"),
		metadataDir: filepath.Join(cacheDir, "metadata"),
		logger:      logger,
		fetch:       fetchVideo,
	}
}

// EnsureYtDlp installs or updates the yt-dlp binary managed by go-ytdlp
func EnsureYtDlp(ctx context.Context) {
	ytdlp.MustInstall(ctx, nil)
}

// Metadata fetches video details, preferring the local cache
func (y *YtDlp) Metadata(ctx context.Context, videoURL string) (*VideoMetadata, error) {
	parsed := ParseURL(videoURL)
	if !parsed.IsValid() {
		return nil, fmt.Errorf("invalid video URL %q: %w", videoURL, parsed.Error)
	}

	if cached, err := LoadCachedMetadata(parsed.ID, y.metadataDir); err == nil {
		y.logger.Debug("using cached metadata", "id", parsed.ID)
		return cached, nil
	}

	y.logger.Debug("extracting video metadata", "url", parsed.NormalizedURL)
	dl := ytdlp.New().
		DumpSingleJSON(). // all info as one JSON document
		NoPlaylist().
		SkipDownload()

	result, err := dl.Run(ctx, parsed.NormalizedURL)
	if err != nil {
		if result != nil {
			y.logger.Debug("metadata extraction failed", "stderr", result.Stderr)
		}
		return nil, fmt.Errorf("extracting video metadata: %w", err)
	}

	metadata, err := parseMetadataJSON(result.Stdout)
	if err != nil {
		return nil, err
	}
	if metadata.ID == "" {
		metadata.ID = parsed.ID
	}
	if metadata.WebpageURL == "" {
		metadata.WebpageURL = parsed.NormalizedURL
	}

	if err := SaveMetadata(parsed.ID, metadata, y.metadataDir); err != nil {
		y.logger.Warn("failed to cache metadata", "id", parsed.ID, "error", err)
	}

	y.logger.Debug("metadata extracted", "title", metadata.Title, "duration", metadata.Duration)
	return metadata, nil
}

// Download fetches metadata and the video file for a URL. Callers asking for a video
// that is already being downloaded wait for that download instead of starting another.
func (y *YtDlp) Download(ctx context.Context, videoURL string) (*DownloadResult, error) {
	key := videoURL
	if parsed := ParseURL(videoURL); parsed.IsValid() {
		key = parsed.ID
	}

	ch := y.downloads.DoChan(key, func() (any, error) {
		return y.download(ctx, videoURL)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			y.logger.Debug("joined in-flight download", "key", key)
		}
		download := *res.Val.(*DownloadResult)
		return &download, nil
	}
}

func (y *YtDlp) download(ctx context.Context, videoURL string) (*DownloadResult, error) {
	metadata, err := y.Metadata(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	if err := EnsureDirs(y.videoDir); err != nil {
		return nil, fmt.Errorf("creating video directory: %w", err)
	}

	id := SafeFileID(metadata.ID)
	if existing := findDownloadedVideo(y.videoDir, id); existing != "" {
		y.logger.Debug("video already downloaded", "path", existing)
		return &DownloadResult{Meta: metadata, VideoPath: existing}, nil
	}

	if err := y.fetch(ctx, ParseURL(videoURL).NormalizedURL, filepath.Join(y.videoDir, id+".%(ext)s")); err != nil {
		return nil, err
	}

	path := findDownloadedVideo(y.videoDir, id)
	if path == "" {
		return nil, fmt.Errorf("%w: no video file found for %s", ErrDownloadFailed, id)
	}

	y.logger.Debug("video downloaded", "path", path)
	return &DownloadResult{Meta: metadata, VideoPath: path}, nil
}

// fetchVideo runs yt-dlp for one URL, writing to outputTemplate
func fetchVideo(ctx context.Context, videoURL, outputTemplate string) error {
	dl := ytdlp.New().
		Format(videoFormat).
		NoPlaylist().
		Output(outputTemplate)

	result, err := dl.Run(ctx, videoURL)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return fmt.Errorf("%w: %v\nOutput: %s", ErrDownloadFailed, err, strings.TrimSpace(stderr))
	}
	return nil
}

// parseMetadataJSON decodes yt-dlp's --dump-single-json output
func parseMetadataJSON(raw string) (*VideoMetadata, error) {
	var metadata VideoMetadata
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, fmt.Errorf("parsing video metadata: %w", err)
	}
	if metadata.Channel == "" {
		metadata.Channel = metadata.Uploader
	}
	return &metadata, nil
}

// findDownloadedVideo returns the finished download for id, ignoring partial files
func findDownloadedVideo(dir, id string) string {
	matches, err := filepath.Glob(filepath.Join(dir, id+".*"))
	if err != nil {
		return ""
	}
	for _, match := range matches {
		ext := filepath.Ext(match)
		if ext == ".part" || ext == ".ytdl" || ext == ".json" {
			continue
		}
		if info, err := os.Stat(match); err == nil && info.Size() > 0 {
			return match
		}
	}
	return ""
}
