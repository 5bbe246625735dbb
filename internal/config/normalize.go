package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeLLM()
	c.normalizeTranslation()
	if err := c.normalizeStages(); err != nil {
		return err
	}
	if err := c.normalizeUpload(); err != nil {
		return err
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RootFolder) == "" {
		c.Paths.RootFolder = defaultRootFolder
	}
	if c.Paths.RootFolder, err = expandPath(c.Paths.RootFolder); err != nil {
		return fmt.Errorf("paths.root_folder: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.TerminologyFile, err = expandPath(strings.TrimSpace(c.Paths.TerminologyFile)); err != nil {
		return fmt.Errorf("paths.terminology_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeLLM() {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		c.LLM.APIKey = firstEnv("YOUDUB_LLM_API_KEY", "OPENAI_API_KEY")
	}
	if value := firstEnv("OPENAI_API_BASE"); value != "" && c.LLM.BaseURL == defaultLLMBaseURL {
		c.LLM.BaseURL = value
	}
	if value := firstEnv("MODEL_NAME"); value != "" && c.LLM.Model == defaultLLMModel {
		c.LLM.Model = value
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
}

func (c *Config) normalizeTranslation() {
	if value := firstEnv("TRANSLATION_TARGET_LANGUAGE"); value != "" && c.Translation.TargetLanguage == defaultTargetLanguage {
		c.Translation.TargetLanguage = value
	}
	c.Translation.TargetLanguage = strings.TrimSpace(c.Translation.TargetLanguage)
	if c.Translation.TargetLanguage == "" {
		c.Translation.TargetLanguage = defaultTargetLanguage
	}
}

func (c *Config) normalizeStages() error {
	c.Download.Binary = orDefault(c.Download.Binary, defaultDownloadBinary)
	c.Download.Resolution = strings.ToLower(orDefault(c.Download.Resolution, defaultResolution))
	if c.Download.CookiesFile != "" {
		var err error
		if c.Download.CookiesFile, err = expandPath(c.Download.CookiesFile); err != nil {
			return fmt.Errorf("download.cookies_file: %w", err)
		}
	}

	c.Separation.Binary = orDefault(c.Separation.Binary, defaultSeparationBinary)
	c.Separation.Model = orDefault(c.Separation.Model, defaultSeparationModel)
	c.Separation.Device = strings.ToLower(orDefault(c.Separation.Device, defaultDevice))

	c.Transcription.Binary = orDefault(c.Transcription.Binary, defaultWhisperXBinary)
	c.Transcription.Model = orDefault(c.Transcription.Model, defaultWhisperXModel)
	c.Transcription.Device = strings.ToLower(orDefault(c.Transcription.Device, defaultDevice))
	if strings.TrimSpace(c.Transcription.HFToken) == "" {
		c.Transcription.HFToken = firstEnv("HF_TOKEN", "HUGGINGFACE_TOKEN")
	}

	c.TTS.BaseURL = strings.TrimRight(orDefault(c.TTS.BaseURL, defaultTTSBaseURL), "/")
	c.TTS.Language = strings.ToLower(orDefault(c.TTS.Language, defaultTTSLanguage))

	if value := firstEnv("VIDEO_ENCODER"); value != "" && c.Synthesis.Encoder == defaultEncoder {
		c.Synthesis.Encoder = value
	}
	if value := firstEnv("VIDEO_QUALITY"); value != "" && c.Synthesis.Quality == defaultQuality {
		c.Synthesis.Quality = value
	}
	c.Synthesis.Encoder = strings.ToLower(orDefault(c.Synthesis.Encoder, defaultEncoder))
	c.Synthesis.Quality = strings.ToLower(orDefault(c.Synthesis.Quality, defaultQuality))
	c.Synthesis.Resolution = strings.ToLower(orDefault(c.Synthesis.Resolution, defaultResolution))
	return nil
}

func (c *Config) normalizeUpload() error {
	c.Upload.Binary = orDefault(c.Upload.Binary, defaultUploadBinary)
	if strings.TrimSpace(c.Upload.CookieFile) == "" {
		c.Upload.CookieFile = firstEnv("BILI_COOKIE_FILE")
	}
	if c.Upload.CookieFile != "" {
		var err error
		if c.Upload.CookieFile, err = expandPath(c.Upload.CookieFile); err != nil {
			return fmt.Errorf("upload.cookie_file: %w", err)
		}
	}
	return nil
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
