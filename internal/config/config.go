package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RootFolder      string `toml:"root_folder"`
	LogDir          string `toml:"log_dir"`
	StateDir        string `toml:"state_dir"`
	TerminologyFile string `toml:"terminology_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	MaxSizeMB      int               `toml:"max_size_mb"`
	MaxBackups     int               `toml:"max_backups"`
	Compress       bool              `toml:"compress"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// LLM contains chat-completion backend settings used by summarization and
// translation.
type LLM struct {
	APIKey            string         `toml:"api_key"`
	BaseURL           string         `toml:"base_url"`
	Model             string         `toml:"model"`
	TimeoutSeconds    int            `toml:"timeout_seconds"`
	RequestsPerMinute int            `toml:"requests_per_minute"`
	ExtraBody         map[string]any `toml:"extra_body"`
}

// Translation contains settings for summary and per-utterance translation.
type Translation struct {
	TargetLanguage          string `toml:"target_language"`
	SummaryRetries          int    `toml:"summary_retries"`
	UtteranceRetries        int    `toml:"utterance_retries"`
	HistoryTurns            int    `toml:"history_turns"`
	TranscriptBudget        int    `toml:"transcript_budget"`
	RetryDelaySeconds       int    `toml:"retry_delay_seconds"`
	FallbackToLastCandidate bool   `toml:"fallback_to_last_candidate"`
}

// Download contains video source settings.
type Download struct {
	Binary      string `toml:"binary"`
	Resolution  string `toml:"resolution"`
	CookiesFile string `toml:"cookies_file"`
}

// Separation contains vocal separation settings.
type Separation struct {
	Binary string `toml:"binary"`
	Model  string `toml:"model"`
	Device string `toml:"device"`
	Shifts int    `toml:"shifts"`
}

// Transcription contains speech recognition settings.
type Transcription struct {
	Binary      string `toml:"binary"`
	Model       string `toml:"model"`
	Device      string `toml:"device"`
	BatchSize   int    `toml:"batch_size"`
	Diarization bool   `toml:"diarization"`
	MinSpeakers int    `toml:"min_speakers"`
	MaxSpeakers int    `toml:"max_speakers"`
	HFToken     string `toml:"hf_token"`
}

// TTS contains voice synthesis settings.
type TTS struct {
	BaseURL        string  `toml:"base_url"`
	Language       string  `toml:"language"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Attempts       int     `toml:"attempts"`
	MaxChars       int     `toml:"max_chars"`
	Lookback       int     `toml:"lookback"`
	MaxRepeats     int     `toml:"max_repeats"`
	MaxTempo       float64 `toml:"max_tempo"`
}

// Synthesis contains final video muxing settings.
type Synthesis struct {
	SpeedUp      float64 `toml:"speed_up"`
	FPS          int     `toml:"fps"`
	Resolution   string  `toml:"resolution"`
	Encoder      string  `toml:"encoder"`
	Quality      string  `toml:"quality"`
	Subtitles    bool    `toml:"subtitles"`
	MaxLineChars int     `toml:"max_line_chars"`
}

// Upload contains publishing settings.
type Upload struct {
	Enabled           bool   `toml:"enabled"`
	Binary            string `toml:"binary"`
	CookieFile        string `toml:"cookie_file"`
	Tid               int    `toml:"tid"`
	Attempts          int    `toml:"attempts"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
}

// Fleet contains orchestration settings for multi-video runs.
type Fleet struct {
	MaxWorkers int `toml:"max_workers"`
	MaxRetries int `toml:"max_retries"`
	NumVideos  int `toml:"num_videos"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	VideoFailures  bool   `toml:"video_failures"`
	RunSummary     bool   `toml:"run_summary"`
}

// Config encapsulates all configuration values.
//
// Configuration sections by subsystem:
//   - Paths: root folder for working directories, logs, ledger state
//   - Logging: log format, level, rotation
//   - LLM: chat-completion backend used for summary and translation
//   - Translation: retry budgets and context window
//   - Download, Separation, Transcription, TTS, Synthesis, Upload: stage knobs
//   - Fleet: worker count, retries, playlist cap
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	LLM           LLM           `toml:"llm"`
	Translation   Translation   `toml:"translation"`
	Download      Download      `toml:"download"`
	Separation    Separation    `toml:"separation"`
	Transcription Transcription `toml:"transcription"`
	TTS           TTS           `toml:"tts"`
	Synthesis     Synthesis     `toml:"synthesis"`
	Upload        Upload        `toml:"upload"`
	Fleet         Fleet         `toml:"fleet"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("youdub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the root, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RootFolder, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the location of the run ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LLMTimeout returns the per-request LLM timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
