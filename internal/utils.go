package internal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	youTubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	unsafeIDChars    = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// ParseURL recognizes YouTube (watch, youtu.be, shorts), TikTok and Instagram reel URLs.
// A bare 11 character ID is treated as a YouTube Short.
func ParseURL(input string) *ParsedURL {
	input = strings.TrimSpace(input)
	parsed := &ParsedURL{OriginalInput: input}

	if IsValidYouTubeID(input) {
		parsed.Platform = PlatformYouTube
		parsed.ID = input
		parsed.NormalizedURL = "https://www.youtube.com/shorts/" + input
		return parsed
	}

	u, err := url.Parse(input)
	if err != nil {
		parsed.Error = fmt.Errorf("parsing URL: %w", err)
		return parsed
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		parsed.Error = fmt.Errorf("not an http(s) URL: %s", input)
		return parsed
	}
	parsed.NormalizedURL = input

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := pathSegments(u.Path)

	switch host {
	case "youtube.com", "youtu.be":
		parsed.Platform = PlatformYouTube
		parsed.ID, parsed.Error = youTubeID(host, u, segments)
	case "tiktok.com", "vm.tiktok.com", "vt.tiktok.com":
		parsed.Platform = PlatformTikTok
		parsed.ID = segmentAfter(segments, "video")
		if parsed.ID == "" && host != "tiktok.com" && len(segments) > 0 {
			// short share links carry an opaque code instead of the numeric ID
			parsed.ID = segments[0]
		}
	case "instagram.com":
		parsed.Platform = PlatformInstagram
		parsed.ID = firstNonEmptyString(segmentAfter(segments, "reel"), segmentAfter(segments, "reels"), segmentAfter(segments, "p"))
	default:
		parsed.Error = fmt.Errorf("unsupported video host: %s", u.Host)
		return parsed
	}

	if parsed.Error == nil && parsed.ID == "" {
		parsed.Error = fmt.Errorf("could not extract video ID from URL: %s", input)
	}
	return parsed
}

func youTubeID(host string, u *url.URL, segments []string) (string, error) {
	if host == "youtu.be" {
		if len(segments) > 0 {
			return segments[0], nil
		}
		return "", fmt.Errorf("could not extract video ID from URL: %s", u)
	}
	if v := u.Query().Get("v"); v != "" {
		return v, nil
	}
	if len(segments) > 0 && segments[0] == "playlist" {
		return "", fmt.Errorf("this is a playlist URL, not a video URL: %s", u)
	}
	for _, prefix := range []string{"shorts", "embed", "live", "v"} {
		if id := segmentAfter(segments, prefix); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not extract video ID from URL: %s", u)
}

func pathSegments(path string) []string {
	var segments []string
	for part := range strings.SplitSeq(path, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func segmentAfter(segments []string, marker string) string {
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == marker {
			return segments[i+1]
		}
	}
	return ""
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// ReadURLFile reads newline-delimited URLs, skipping blank lines and # comments
func ReadURLFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening batch file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	return urls, nil
}

// SafeFileID folds accents and replaces anything outside [A-Za-z0-9_-] so the result
// can be embedded in a file name
func SafeFileID(id string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), id)
	if err != nil {
		folded = id
	}
	cleaned := unsafeIDChars.ReplaceAllString(folded, "_")
	return strings.Trim(cleaned, "_")
}

// CleanupTempDir purges files from a temporary directory
func CleanupTempDir(tempDir string) error {
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return fmt.Errorf("reading temp directory: %w", err)
	}

	for _, entry := range entries {
		filePath := filepath.Join(tempDir, entry.Name())
		if err := os.RemoveAll(filePath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove temporary file %s: %v\n", filePath, err)
		}
	}

	if err := os.Remove(tempDir); err != nil {
		fmt.Fprintf(os.Stderr, "Note: could not remove temp directory %s: %v\n", tempDir, err)
	}

	return nil
}

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content with glamour
func RenderMarkdown(content string) (string, error) {
	width := getTerminalWidth()
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	renderedContent, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return renderedContent, nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// EnsureDirs creates directories if needed
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// IsValidYouTubeID checks if a string looks like a valid YouTube video ID
func IsValidYouTubeID(id string) bool {
	return youTubeIDPattern.MatchString(id)
}

// IsLikelyCommand checks if a string looks like it might be a mistyped command
func IsLikelyCommand(arg string) bool {
	return len(arg) <= 10 && !strings.Contains(arg, "/") && !IsValidYouTubeID(arg)
}

// ValidateOpenAIAPIKey checks if the OpenAI API key is set and returns a standardized error if not
func ValidateOpenAIAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("OpenAI API key is required - set it in config.toml or OPENAI_API_KEY environment variable")
	}
	return nil
}

// CachedVideoMetadata extends VideoMetadata with cache information
type CachedVideoMetadata struct {
	VideoMetadata
	CachedAt time.Time `json:"cached_at"`
}

// SaveMetadata saves video metadata to the cache directory as JSON
func SaveMetadata(videoID string, metadata *VideoMetadata, cacheDir string) error {
	if err := EnsureDirs(cacheDir); err != nil {
		return fmt.Errorf("creating metadata cache: %w", err)
	}

	cached := CachedVideoMetadata{VideoMetadata: *metadata, CachedAt: time.Now()}
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	metadataPath := filepath.Join(cacheDir, SafeFileID(videoID)+".meta.json")
	if err := os.WriteFile(metadataPath, data, 0644); err != nil {
		return fmt.Errorf("saving metadata: %w", err)
	}

	return nil
}

// LoadCachedMetadata loads video metadata from the cache directory
func LoadCachedMetadata(videoID, cacheDir string) (*VideoMetadata, error) {
	metadataPath := filepath.Join(cacheDir, SafeFileID(videoID)+".meta.json")

	if !FileExists(metadataPath) {
		return nil, fmt.Errorf("metadata cache not found")
	}

	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("reading metadata cache: %w", err)
	}

	var cached CachedVideoMetadata
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("parsing metadata cache: %w", err)
	}

	metadata := cached.VideoMetadata
	return &metadata, nil
}
