package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	validResolutions = map[string]struct{}{"360p": {}, "480p": {}, "720p": {}, "1080p": {}, "1440p": {}, "2160p": {}}
	validEncoders    = map[string]struct{}{"auto": {}, "nvenc": {}, "x264": {}}
	validQualities   = map[string]struct{}{"high": {}, "medium": {}, "fast": {}}
	validDevices     = map[string]struct{}{"auto": {}, "cuda": {}, "cpu": {}}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateFleet(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be non-negative")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requests_per_minute must be non-negative")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	return ensurePositiveMap(map[string]int{
		"translation.summary_retries":   c.Translation.SummaryRetries,
		"translation.utterance_retries": c.Translation.UtteranceRetries,
		"translation.history_turns":     c.Translation.HistoryTurns,
		"translation.transcript_budget": c.Translation.TranscriptBudget,
	})
}

func (c *Config) validateStages() error {
	if _, ok := validResolutions[c.Download.Resolution]; !ok {
		return fmt.Errorf("download.resolution: unsupported value %q", c.Download.Resolution)
	}
	if _, ok := validResolutions[c.Synthesis.Resolution]; !ok {
		return fmt.Errorf("synthesis.resolution: unsupported value %q", c.Synthesis.Resolution)
	}
	if _, ok := validDevices[c.Separation.Device]; !ok {
		return fmt.Errorf("separation.device: unsupported value %q", c.Separation.Device)
	}
	if _, ok := validDevices[c.Transcription.Device]; !ok {
		return fmt.Errorf("transcription.device: unsupported value %q", c.Transcription.Device)
	}
	if _, ok := validEncoders[c.Synthesis.Encoder]; !ok {
		return fmt.Errorf("synthesis.encoder: unsupported value %q", c.Synthesis.Encoder)
	}
	if _, ok := validQualities[c.Synthesis.Quality]; !ok {
		return fmt.Errorf("synthesis.quality: unsupported value %q", c.Synthesis.Quality)
	}
	if c.Synthesis.SpeedUp <= 0 {
		return errors.New("synthesis.speed_up must be positive")
	}
	if c.TTS.MaxTempo < 1 {
		return errors.New("tts.max_tempo must be at least 1")
	}
	if c.TTS.Lookback > c.TTS.MaxChars {
		return errors.New("tts.lookback must not exceed tts.max_chars")
	}
	if c.Transcription.MinSpeakers < 0 || c.Transcription.MaxSpeakers < 0 {
		return errors.New("transcription speaker bounds must be non-negative")
	}
	if c.Transcription.MaxSpeakers > 0 && c.Transcription.MinSpeakers > c.Transcription.MaxSpeakers {
		return errors.New("transcription.min_speakers must not exceed transcription.max_speakers")
	}
	return ensurePositiveMap(map[string]int{
		"separation.shifts":        c.Separation.Shifts,
		"transcription.batch_size": c.Transcription.BatchSize,
		"tts.timeout_seconds":      c.TTS.TimeoutSeconds,
		"tts.attempts":             c.TTS.Attempts,
		"tts.max_chars":            c.TTS.MaxChars,
		"tts.lookback":             c.TTS.Lookback,
		"tts.max_repeats":          c.TTS.MaxRepeats,
		"synthesis.fps":            c.Synthesis.FPS,
		"synthesis.max_line_chars": c.Synthesis.MaxLineChars,
	})
}

func (c *Config) validateUpload() error {
	if !c.Upload.Enabled {
		return nil
	}
	if c.Upload.Tid <= 0 {
		return errors.New("upload.tid must be positive when upload.enabled is true")
	}
	return ensurePositiveMap(map[string]int{
		"upload.attempts": c.Upload.Attempts,
	})
}

func (c *Config) validateFleet() error {
	return ensurePositiveMap(map[string]int{
		"fleet.max_workers": c.Fleet.MaxWorkers,
		"fleet.max_retries": c.Fleet.MaxRetries,
		"fleet.num_videos":  c.Fleet.NumVideos,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", strings.TrimSpace(key))
		}
	}
	return nil
}
