package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"youdub/internal/ledger"
)

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRunLifecycle(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	run := ledger.Run{ID: "run-1", URLs: []string{"https://a", "https://b"}, RootFolder: "/videos", Workers: 2}
	if err := l.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	for _, v := range []ledger.Video{
		{RunID: "run-1", VideoID: "v1", Title: "One", Outcome: "succeeded", Attempts: 1, Duration: 1500 * time.Millisecond},
		{RunID: "run-1", VideoID: "v2", Outcome: "failed", Attempts: 3, Error: "boom"},
	} {
		if err := l.RecordVideo(ctx, v); err != nil {
			t.Fatalf("RecordVideo failed: %v", err)
		}
	}
	if err := l.FinishRun(ctx, "run-1", 1, 1, 0, nil); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := l.Runs(ctx, 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("Runs = %+v, %v", runs, err)
	}
	got := runs[0]
	if got.FinishedAt == nil || got.Succeeded != 1 || got.Failed != 1 || len(got.URLs) != 2 {
		t.Fatalf("unexpected run %+v", got)
	}

	videos, err := l.Videos(ctx, "run-1")
	if err != nil || len(videos) != 2 {
		t.Fatalf("Videos = %+v, %v", videos, err)
	}
	if videos[0].Duration != 1500*time.Millisecond || videos[1].Error != "boom" || videos[1].Title != "" {
		t.Fatalf("unexpected videos %+v", videos)
	}

	outcome, err := l.LastOutcome(ctx, "v2")
	if err != nil || outcome != "failed" {
		t.Fatalf("LastOutcome = %q, %v", outcome, err)
	}
	if outcome, _ := l.LastOutcome(ctx, "missing"); outcome != "" {
		t.Fatalf("expected no outcome, got %q", outcome)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	l := openLedger(t)
	if err := l.FinishRun(context.Background(), "nope", 0, 0, 0, nil); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestReopenChecksSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := ledger.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = l.Close()

	l, err = ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	_ = l.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
