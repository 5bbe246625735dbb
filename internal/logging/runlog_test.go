package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTeeLoggerWritesToAllHandlers(t *testing.T) {
	var first, second bytes.Buffer
	base := slog.New(slog.NewTextHandler(&first, nil))
	logger := TeeLogger(base, slog.NewTextHandler(&second, &slog.HandlerOptions{Level: slog.LevelWarn}), nil)

	logger.Info("info line")
	logger.With(String("video_id", "abc")).Warn("warn line")

	if !strings.Contains(first.String(), "info line") || !strings.Contains(first.String(), "warn line") {
		t.Fatalf("base handler missing lines: %q", first.String())
	}
	if strings.Contains(second.String(), "info line") {
		t.Fatalf("warn handler received info line: %q", second.String())
	}
	if !strings.Contains(second.String(), "video_id=abc") {
		t.Fatalf("attrs not propagated: %q", second.String())
	}
}

func TestTeeLoggerWithoutHandlers(t *testing.T) {
	logger := TeeLogger(nil)
	logger.Info("dropped")
}

func TestOpenRunLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "run-1.log")
	handler, closer, err := OpenRunLog(path, "info")
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	TeeLogger(nil, handler).Info("run started", String(FieldRunID, "r1"))
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"run_id":"r1"`) {
		t.Fatalf("expected json run log, got %q", data)
	}
}
