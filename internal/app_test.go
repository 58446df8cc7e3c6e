package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type fakeSource struct {
	*fakeDownloader
}

func (s fakeSource) Metadata(ctx context.Context, videoURL string) (*VideoMetadata, error) {
	return &VideoMetadata{ID: filepath.Base(videoURL), Title: "meta"}, nil
}

func newTestApp(t *testing.T, d *fakeDownloader) *App {
	t.Helper()
	root := t.TempDir()
	config := &Config{
		Concurrency: 2,
		OutputDir:   filepath.Join(root, "analyses"),
		ConfigDir:   filepath.Join(root, "config"),
		DataDir:     filepath.Join(root, "data"),
		CacheDir:    filepath.Join(root, "cache"),
		TempDir:     filepath.Join(root, "cache", "temp_chunks"),
		HistoryDB:   filepath.Join(root, "data", "history.db"),
		Quiet:       true,
	}
	return NewApp(config,
		WithVideoSource(fakeSource{d}),
		WithAudioExtractor(fakeExtractor{}),
		WithTranscriber(fakeTranscriber{}),
		WithAnalyzer(fakeAnalyzer{}),
		WithUI(&StandardUIManager{quiet: true, out: &bytes.Buffer{}}),
	)
}

func TestAppRunBatchPersistsResults(t *testing.T) {
	d := &fakeDownloader{fail: map[string]error{urlFor("appbad00001"): errors.New("private video")}}
	app := newTestApp(t, d)
	urls := []string{urlFor("appgood0001"), urlFor("appbad00001"), urlFor("appgood0002")}

	result, err := app.RunBatch(context.Background(), urls, app.BatchConfig())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	assertInvariants(t, urls, result)

	records, err := LoadAnalysisRecords(app.Config().OutputDir)
	if err != nil {
		t.Fatalf("LoadAnalysisRecords: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("persisted %d analyses, want 2", len(records))
	}
	summaryPath, err := LatestSummaryFile(app.Config().OutputDir)
	if err != nil {
		t.Fatalf("LatestSummaryFile: %v", err)
	}
	summary, err := LoadSummary(summaryPath)
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if summary.ID != result.ID || summary.Failed != 1 || len(summary.Items) != 3 {
		t.Errorf("summary = %+v", summary)
	}
	lock, err := LockOutputDir(app.Config().OutputDir)
	if err != nil {
		t.Fatalf("output lock still held after the batch: %v", err)
	}
	_ = lock.Unlock()

	if err := app.RecordHistory(context.Background(), result); err != nil {
		t.Fatalf("RecordHistory: %v", err)
	}
	trends, err := app.Trends(10)
	if err != nil {
		t.Fatalf("Trends: %v", err)
	}
	if trends.Videos != 2 || trends.HookTypes[0].Value != "question" {
		t.Errorf("trends = %+v", trends)
	}
}

func TestAppRunBatchRejectsLockedOutputDir(t *testing.T) {
	d := &fakeDownloader{}
	app := newTestApp(t, d)
	dir := app.Config().OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	lock, err := LockOutputDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Unlock()

	_, err = app.RunBatch(context.Background(), []string{urlFor("locked00001")}, app.BatchConfig())
	if !errors.Is(err, ErrOutputDirLocked) {
		t.Fatalf("err = %v, want ErrOutputDirLocked", err)
	}
	if len(d.calls()) != 0 {
		t.Error("videos processed despite the lock")
	}
}

func TestAppRunBatchEmptyInput(t *testing.T) {
	app := newTestApp(t, &fakeDownloader{})
	if _, err := app.RunBatch(context.Background(), nil, app.BatchConfig()); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if FileExists(app.Config().OutputDir) {
		t.Error("output directory created for an empty batch")
	}
}

func TestAppAnalysisUsesStoredRecord(t *testing.T) {
	d := &fakeDownloader{}
	app := newTestApp(t, d)
	u := urlFor("stored00001")

	first, err := app.Analysis(context.Background(), u)
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if first.Analysis == nil || first.Meta.ID != "stored00001" {
		t.Fatalf("record = %+v", first)
	}

	// the bare id resolves to the same stored file
	second, err := app.Analysis(context.Background(), "stored00001")
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if second.URL != u {
		t.Errorf("url = %q", second.URL)
	}
	if n := len(d.calls()); n != 1 {
		t.Errorf("downloaded %d times, want 1", n)
	}
}

func TestAppAnalyzeURLFailure(t *testing.T) {
	u := urlFor("failing0001")
	app := newTestApp(t, &fakeDownloader{fail: map[string]error{u: errors.New("removed by uploader")}})

	if _, err := app.AnalyzeURL(context.Background(), u); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := app.StoredAnalysis(u); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("StoredAnalysis err = %v, want os.ErrNotExist", err)
	}
}

func TestAppAnalyzeURLConcurrentCalls(t *testing.T) {
	app := newTestApp(t, &fakeDownloader{})
	urls := []string{urlFor("parallel001"), urlFor("parallel002"), urlFor("parallel001")}

	records := make([]*AnalysisRecord, len(urls))
	errs := make([]error, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records[i], errs[i] = app.AnalyzeURL(context.Background(), u)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("AnalyzeURL(%s): %v", urls[i], err)
		}
		if records[i].URL != urls[i] {
			t.Errorf("record %d url = %q, want %q", i, records[i].URL, urls[i])
		}
	}
}

func TestAppAnalyzeURLWhileBatchHoldsLock(t *testing.T) {
	app := newTestApp(t, &fakeDownloader{})
	dir := app.Config().OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	lock, err := LockOutputDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Unlock()

	if _, err := app.AnalyzeURL(context.Background(), urlFor("nextdoor001")); err != nil {
		t.Fatalf("AnalyzeURL: %v", err)
	}
}

func TestAppAnalyzeURLWritesNoSummary(t *testing.T) {
	app := newTestApp(t, &fakeDownloader{})
	if _, err := app.RunBatch(context.Background(), []string{urlFor("realbatch01"), urlFor("realbatch02")}, app.BatchConfig()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if _, err := app.AnalyzeURL(context.Background(), urlFor("single00001")); err != nil {
		t.Fatalf("AnalyzeURL: %v", err)
	}

	summaries, err := filepath.Glob(filepath.Join(app.Config().OutputDir, "batch-summary-*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("found %d summaries, want only the batch's", len(summaries))
	}
	report, err := app.LoadReport("")
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if len(report.Items) != 2 {
		t.Errorf("latest report has %d items, want the two-video batch", len(report.Items))
	}
	if !FileExists(filepath.Join(app.Config().OutputDir, AnalysisFileName("single00001"))) {
		t.Error("single analysis was not saved")
	}
}

func TestAppGenerateScript(t *testing.T) {
	chat := &stubChat{model: "llama3.1", content: `{"title":"t","scenes":[{"start":0,"end":5,"narration":"n"}]}`}
	app := newTestApp(t, &fakeDownloader{})
	WithChat(chat)(app)

	if _, err := app.RunBatch(context.Background(), []string{urlFor("trend000001")}, app.BatchConfig()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	script, err := app.GenerateScript(context.Background(), "home workouts", 30, 5)
	if err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}
	if script.Topic != "home workouts" || len(script.Scenes) != 1 {
		t.Errorf("script = %+v", script)
	}
	if len(chat.prompts) != 1 {
		t.Fatalf("chat called %d times", len(chat.prompts))
	}
	if !bytes.Contains([]byte(chat.prompts[0]), []byte("question (1)")) {
		t.Errorf("prompt does not carry trends:\n%s", chat.prompts[0])
	}
}
