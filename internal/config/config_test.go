package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"youdub/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HF_TOKEN", "hf-test")
	t.Setenv("VIDEO_ENCODER", "x264")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, ".local", "share", "youdub", "logs"); cfg.Paths.LogDir != want {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, want)
	}
	if !filepath.IsAbs(cfg.Paths.RootFolder) {
		t.Fatalf("expected absolute root folder, got %q", cfg.Paths.RootFolder)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Transcription.HFToken != "hf-test" {
		t.Fatalf("expected hf token from env, got %q", cfg.Transcription.HFToken)
	}
	if cfg.Synthesis.Encoder != "x264" {
		t.Fatalf("expected encoder from env, got %q", cfg.Synthesis.Encoder)
	}
	if cfg.Fleet.MaxRetries != 3 || cfg.Translation.UtteranceRetries != 30 || cfg.Translation.HistoryTurns != 30 {
		t.Fatalf("unexpected retry defaults: %+v %+v", cfg.Fleet, cfg.Translation)
	}
	if cfg.LedgerPath() != filepath.Join(cfg.Paths.StateDir, "ledger.db") {
		t.Fatalf("unexpected ledger path %q", cfg.LedgerPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENAI_API_KEY", "")

	configPath := filepath.Join(t.TempDir(), "youdub.toml")
	payload := struct {
		Paths struct {
			RootFolder string `toml:"root_folder"`
		} `toml:"paths"`
		LLM struct {
			APIKey    string         `toml:"api_key"`
			BaseURL   string         `toml:"base_url"`
			ExtraBody map[string]any `toml:"extra_body"`
		} `toml:"llm"`
		Fleet struct {
			MaxWorkers int `toml:"max_workers"`
		} `toml:"fleet"`
	}{}
	payload.Paths.RootFolder = "~/dubbed"
	payload.LLM.APIKey = "file-key"
	payload.LLM.BaseURL = "http://localhost:11434/v1/"
	payload.LLM.ExtraBody = map[string]any{"enable_thinking": false}
	payload.Fleet.MaxWorkers = 3
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.RootFolder != filepath.Join(tempHome, "dubbed") {
		t.Fatalf("unexpected root folder %q", cfg.Paths.RootFolder)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.ExtraBody["enable_thinking"] != false {
		t.Fatalf("expected extra body to round-trip, got %#v", cfg.LLM.ExtraBody)
	}
	if cfg.Fleet.MaxWorkers != 3 {
		t.Fatalf("expected max workers 3, got %d", cfg.Fleet.MaxWorkers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"workers", func(c *config.Config) { c.Fleet.MaxWorkers = 0 }, "fleet.max_workers"},
		{"encoder", func(c *config.Config) { c.Synthesis.Encoder = "av1" }, "synthesis.encoder"},
		{"resolution", func(c *config.Config) { c.Download.Resolution = "999p" }, "download.resolution"},
		{"speakers", func(c *config.Config) { c.Transcription.MinSpeakers = 4; c.Transcription.MaxSpeakers = 2 }, "min_speakers"},
		{"lookback", func(c *config.Config) { c.TTS.Lookback = 100 }, "tts.lookback"},
		{"upload tid", func(c *config.Config) { c.Upload.Enabled = true; c.Upload.Tid = 0 }, "upload.tid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.TTS.MaxChars != 80 || cfg.Upload.Enabled {
		t.Fatalf("unexpected sample values: %+v %+v", cfg.TTS, cfg.Upload)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RootFolder = filepath.Join(base, "root")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.RootFolder, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}
