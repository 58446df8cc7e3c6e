package internal

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleBatch(id string, started time.Time) *BatchResult {
	return &BatchResult{
		ID:          id,
		OutputDir:   "/out",
		Concurrency: 4,
		Workers:     2,
		StartedAt:   started,
		CompletedAt: started.Add(time.Minute),
		Successful:  1,
		Failed:      1,
		Items: []WorkItem{
			{URL: "https://a", Status: StatusCompleted, Result: &ItemResult{ResultFile: "/out/analysis-a.json"}},
			{URL: "https://b", Status: StatusFailed, Error: "download: 404"},
		},
	}
}

func TestHistoryRecordAndList(t *testing.T) {
	ctx := context.Background()
	history, err := OpenHistory(ctx, filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer history.Close()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	// a sub-second timestamp must still sort after a whole-second one
	for _, b := range []*BatchResult{
		sampleBatch("first", base),
		sampleBatch("third", base.Add(2*time.Hour)),
		sampleBatch("second", base.Add(time.Hour+500*time.Millisecond)),
	} {
		if err := history.Record(ctx, b); err != nil {
			t.Fatalf("Record(%s): %v", b.ID, err)
		}
	}

	runs, err := history.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	for i, want := range []string{"third", "second", "first"} {
		if runs[i].ID != want {
			t.Errorf("run %d = %s, want %s", i, runs[i].ID, want)
		}
	}
	if runs[0].Total != 2 || runs[0].Workers != 2 || runs[0].Failed != 1 {
		t.Errorf("run = %+v", runs[0])
	}
	if !runs[2].StartedAt.Equal(base) {
		t.Errorf("started at = %v, want %v", runs[2].StartedAt, base)
	}

	limited, err := history.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "third" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestHistoryItems(t *testing.T) {
	ctx := context.Background()
	history, err := OpenHistory(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer history.Close()

	batch := sampleBatch("batch-1", time.Now())
	if err := history.Record(ctx, batch); err != nil {
		t.Fatalf("Record: %v", err)
	}
	// recording again replaces rather than duplicates
	if err := history.Record(ctx, batch); err != nil {
		t.Fatalf("Record again: %v", err)
	}

	items, err := history.Items(ctx, "batch-1")
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ResultFile != "/out/analysis-a.json" || items[0].Status != StatusCompleted {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[1].Error != "download: 404" || items[1].Status != StatusFailed {
		t.Errorf("item 1 = %+v", items[1])
	}

	none, err := history.Items(ctx, "missing")
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d items for an unknown batch", len(none))
	}
}

func TestHistoryListRejectsCorruptTimestamps(t *testing.T) {
	ctx := context.Background()
	history, err := OpenHistory(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer history.Close()

	if err := history.Record(ctx, sampleBatch("corrupt", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := history.db.ExecContext(ctx, `UPDATE batches SET completed_at = 'yesterday' WHERE id = 'corrupt'`); err != nil {
		t.Fatal(err)
	}

	runs, err := history.List(ctx, 0)
	if err == nil {
		t.Fatalf("List = %+v, want an error for an unparseable timestamp", runs)
	}
	if !strings.Contains(err.Error(), "corrupt") || !strings.Contains(err.Error(), "completed_at") {
		t.Errorf("err = %v, want the row and column named", err)
	}
}
