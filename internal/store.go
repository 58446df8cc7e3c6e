package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	analysisFilePrefix = "analysis-"
	summaryFilePrefix  = "batch-summary-"
)

// FileStore writes batch artifacts as JSON files into an output directory
type FileStore struct{}

// NewFileStore creates a filesystem result store
func NewFileStore() *FileStore {
	return &FileStore{}
}

// EnsureDir creates the output directory
func (s *FileStore) EnsureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is not set")
	}
	return os.MkdirAll(dir, 0755)
}

// WriteItem saves analysis-<id>.json and returns its path
func (s *FileStore) WriteItem(dir, id string, record *AnalysisRecord) (string, error) {
	path := filepath.Join(dir, AnalysisFileName(id))
	if err := writeJSONFile(path, record); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSummary saves batch-summary-<timestamp>.json and returns its path
func (s *FileStore) WriteSummary(dir string, result *BatchResult) (string, error) {
	stamp := result.CompletedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	path := filepath.Join(dir, SummaryFileName(stamp))
	if err := writeJSONFile(path, result); err != nil {
		return "", err
	}
	return path, nil
}

// AnalysisFileName returns the per-item result file name for id
func AnalysisFileName(id string) string {
	return analysisFilePrefix + id + ".json"
}

// SummaryFileName returns the batch summary file name for a completion time,
// e.g. batch-summary-2024-05-01T12-30-00-000Z.json
func SummaryFileName(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%s-%03dZ.json", summaryFilePrefix, t.Format("2006-01-02T15-04-05"), t.Nanosecond()/int(time.Millisecond))
}

// writeJSONFile writes through a temp file so readers never see a partial document
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("saving %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadAnalysisRecords reads every analysis-*.json file in dir, sorted by file name
func LoadAnalysisRecords(dir string) ([]AnalysisRecord, error) {
	files, err := filepath.Glob(filepath.Join(dir, analysisFilePrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	sort.Strings(files)

	records := make([]AnalysisRecord, 0, len(files))
	for _, file := range files {
		record, err := LoadAnalysisRecord(file)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// LoadAnalysisRecord reads one persisted analysis
func LoadAnalysisRecord(path string) (*AnalysisRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading analysis: %w", err)
	}
	var record AnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &record, nil
}

// LatestSummaryFile returns the newest batch summary in dir
func LatestSummaryFile(dir string) (string, error) {
	files, err := filepath.Glob(filepath.Join(dir, summaryFilePrefix+"*.json"))
	if err != nil {
		return "", fmt.Errorf("listing batch summaries: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no batch summaries found in %s", dir)
	}
	// timestamps in the names sort lexically
	sort.Strings(files)
	return files[len(files)-1], nil
}

// LoadSummary reads a batch summary file
func LoadSummary(path string) (*BatchResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch summary: %w", err)
	}
	var result BatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing batch summary: %w", err)
	}
	return &result, nil
}
