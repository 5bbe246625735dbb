package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"youdub/internal/config"
	"youdub/internal/logging"
	"youdub/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "youdub.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller", logging.String(logging.FieldComponent, "fleet"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", text)
	}
	if !strings.Contains(text, "fleet: message without caller") {
		t.Fatalf("expected component prefix, got %q", text)
	}
	if strings.Contains(text, "\x1b[") {
		t.Fatalf("file output must not be colorized, got %q", text)
	}
}

func TestConsoleLoggerScopesVideoAndStage(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("stage started",
		logging.String(logging.FieldComponent, "workflow"),
		logging.String(logging.FieldVideoID, "abc123"),
		logging.String(logging.FieldStage, "speak"),
		logging.String(logging.FieldRunID, "run-1"),
		logging.Int(logging.FieldAttempt, 2),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "workflow: [abc123/speak] stage started attempt=2") {
		t.Fatalf("expected scoped line, got %q", text)
	}
	if strings.Contains(text, "run-1") {
		t.Fatalf("run id should stay out of console lines, got %q", text)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithVideoID(context.Background(), "vid-1")
	ctx = services.WithStage(ctx, "translate")
	logging.WithContext(ctx, logger).Info("stage started")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry[logging.FieldVideoID] != "vid-1" || entry[logging.FieldStage] != "translate" {
		t.Fatalf("missing context fields: %#v", entry)
	}
	if entry["msg"] != "stage started" || entry["level"] != "info" {
		t.Fatalf("unexpected entry shape: %#v", entry)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestStageOverrideEnablesDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "override.log")
	overrides := map[string]string{"translate": "debug"}
	logger, err := logging.New(logging.Options{
		Format:         "console",
		Level:          "info",
		OutputPaths:    []string{logPath},
		StageOverrides: overrides,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("global debug")
	logging.ForStage(logger, overrides, "translate").Debug("stage debug")
	logging.ForStage(logger, overrides, "download").Debug("other debug")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, "global debug") || strings.Contains(text, "other debug") {
		t.Fatalf("debug lines leaked past global level: %q", text)
	}
	if !strings.Contains(text, "stage debug") {
		t.Fatalf("expected stage override debug line, got %q", text)
	}
}
