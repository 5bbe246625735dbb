// Package testsupport builds throwaway configurations and video folders for
// package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"youdub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.Paths.RootFolder = filepath.Join(base, "videos")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.TerminologyFile = filepath.Join(base, "terminology.json")

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithLLMEndpoint points the translation backend at baseURL.
func WithLLMEndpoint(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL
	}
}

// WithTTSEndpoint points voice synthesis at baseURL.
func WithTTSEndpoint(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TTS.BaseURL = baseURL
	}
}

// WithUpload enables publishing with a populated cookie file.
func WithUpload() ConfigOption {
	return func(b *configBuilder) {
		cookies := filepath.Join(b.baseDir, "cookies.json")
		if err := os.WriteFile(cookies, []byte(`{"cookie_info":{}}`), 0o600); err != nil {
			b.t.Fatalf("write cookies: %v", err)
		}
		b.cfg.Upload.Enabled = true
		b.cfg.Upload.CookieFile = cookies
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, every binary the pipeline
// shells out to is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{
				b.cfg.Download.Binary,
				b.cfg.FFmpegBinary(),
				b.cfg.FFprobeBinary(),
				b.cfg.Separation.Binary,
				b.cfg.Transcription.Binary,
				b.cfg.Upload.Binary,
			}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, filepath.Base(name))
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RootFolder)
}
