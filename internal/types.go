package internal

import (
	"fmt"
	"time"
)

// Platform identifies the short-form video host of a URL
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformYouTube
	PlatformTikTok
	PlatformInstagram
)

// String returns a human-readable representation of the platform
func (p Platform) String() string {
	switch p {
	case PlatformYouTube:
		return "youtube"
	case PlatformTikTok:
		return "tiktok"
	case PlatformInstagram:
		return "instagram"
	default:
		return "unknown"
	}
}

// ParsedURL represents the result of parsing a video URL or bare video ID
type ParsedURL struct {
	Platform      Platform
	OriginalInput string
	NormalizedURL string
	ID            string
	Error         error
}

// IsValid returns true if the URL was recognized and has no errors
func (p *ParsedURL) IsValid() bool {
	return p.Error == nil && p.Platform != PlatformUnknown
}

// String returns a formatted representation of the parsed URL
func (p *ParsedURL) String() string {
	if p.Error != nil {
		return fmt.Sprintf("ParsedURL{platform=%s, input=%q, error=%v}", p.Platform, p.OriginalInput, p.Error)
	}
	return fmt.Sprintf("ParsedURL{platform=%s, id=%s, url=%s}", p.Platform, p.ID, p.NormalizedURL)
}

// ItemStatus is the pipeline position of a single work item
type ItemStatus string

const (
	StatusPending      ItemStatus = "pending"
	StatusDownloading  ItemStatus = "downloading"
	StatusTranscribing ItemStatus = "transcribing"
	StatusAnalyzing    ItemStatus = "analyzing"
	StatusCompleted    ItemStatus = "completed"
	StatusFailed       ItemStatus = "failed"
)

// Terminal reports whether no further transitions can happen from s
func (s ItemStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// VideoMetadata contains the video information reported by yt-dlp
type VideoMetadata struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Channel     string   `json:"channel"`
	Uploader    string   `json:"uploader"`
	Duration    float64  `json:"duration"`
	ViewCount   int64    `json:"view_count"`
	LikeCount   int64    `json:"like_count"`
	Tags        []string `json:"tags"`
	UploadDate  string   `json:"upload_date"`
	WebpageURL  string   `json:"webpage_url"`
	Extractor   string   `json:"extractor_key"`
}

// DownloadResult is what the downloader hands to the transcription stage
type DownloadResult struct {
	Meta      *VideoMetadata `json:"meta"`
	VideoPath string         `json:"video_path"`
}

// Segment is one timestamped span of a transcript
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript holds the full text of a video along with its timing
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Duration float64   `json:"duration"`
	Language string    `json:"language,omitempty"`
	Provider string    `json:"provider,omitempty"`
}

// Hook describes how a video grabs attention in its opening seconds
type Hook struct {
	Text     string  `json:"text"`
	Type     string  `json:"type"`
	Duration float64 `json:"duration_seconds"`
}

// Section is one structural beat of a video
type Section struct {
	Name    string  `json:"name"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Purpose string  `json:"purpose"`
}

// Analysis is the structural breakdown produced by the analyzer
type Analysis struct {
	Hook           Hook      `json:"hook"`
	Structure      []Section `json:"structure"`
	Techniques     []string  `json:"techniques"`
	Tone           string    `json:"tone"`
	Pacing         string    `json:"pacing"`
	CallToAction   string    `json:"call_to_action"`
	Topics         []string  `json:"topics"`
	TargetAudience string    `json:"target_audience"`
	KeyTakeaways   []string  `json:"key_takeaways"`
	Provider       string    `json:"provider,omitempty"`
	Model          string    `json:"model,omitempty"`
}

// ItemResult accumulates stage outputs for a work item
type ItemResult struct {
	Meta       *VideoMetadata `json:"meta,omitempty"`
	VideoPath  string         `json:"video_path,omitempty"`
	AudioPath  string         `json:"audio_path,omitempty"`
	Transcript *Transcript    `json:"transcript,omitempty"`
	Analysis   *Analysis      `json:"analysis,omitempty"`
	ResultFile string         `json:"result_file,omitempty"`
}

// WorkItem is one URL's unit of work through the pipeline
type WorkItem struct {
	URL         string      `json:"url"`
	Status      ItemStatus  `json:"status"`
	Result      *ItemResult `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at,omitzero"`
	CompletedAt time.Time   `json:"completed_at,omitzero"`
}

// BatchResult aggregates every work item of a batch
type BatchResult struct {
	ID          string     `json:"id"`
	OutputDir   string     `json:"output_dir"`
	Concurrency int        `json:"concurrency"`
	Workers     int        `json:"workers"`
	Items       []WorkItem `json:"items"`
	Successful  int        `json:"successful"`
	Failed      int        `json:"failed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// FailedItems returns only the failed items, in input order
func (b *BatchResult) FailedItems() []WorkItem {
	var failed []WorkItem
	for _, item := range b.Items {
		if item.Status == StatusFailed {
			failed = append(failed, item)
		}
	}
	return failed
}

// tally recomputes the success and failure counters from the items
func (b *BatchResult) tally() {
	b.Successful, b.Failed = 0, 0
	for _, item := range b.Items {
		switch item.Status {
		case StatusCompleted:
			b.Successful++
		case StatusFailed:
			b.Failed++
		}
	}
}

// AnalysisRecord is the persisted per-item artifact (analysis-<id>.json)
type AnalysisRecord struct {
	URL        string         `json:"url"`
	Meta       *VideoMetadata `json:"meta"`
	Transcript *Transcript    `json:"transcript"`
	Analysis   *Analysis      `json:"analysis"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}
