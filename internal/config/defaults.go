package config

const (
	defaultConfigPath       = "~/.config/youdub/config.toml"
	defaultRootFolder       = "videos"
	defaultLogDir           = "~/.local/share/youdub/logs"
	defaultStateDir         = "~/.local/share/youdub"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultLogMaxSizeMB     = 50
	defaultLogMaxBackups    = 5

	defaultLLMBaseURL        = "https://api.openai.com/v1"
	defaultLLMModel          = "gpt-4o-mini"
	defaultLLMTimeoutSeconds = 240
	defaultRequestsPerMinute = 60

	defaultTargetLanguage    = "简体中文"
	defaultSummaryRetries    = 5
	defaultUtteranceRetries  = 30
	defaultHistoryTurns      = 30
	defaultTranscriptBudget  = 2000
	defaultTranslationDelay  = 1
	defaultDownloadBinary    = "yt-dlp"
	defaultResolution        = "1080p"
	defaultSeparationBinary  = "demucs"
	defaultSeparationModel   = "htdemucs_ft"
	defaultDevice            = "auto"
	defaultShifts            = 5
	defaultWhisperXBinary    = "whisperx"
	defaultWhisperXModel     = "large-v3"
	defaultBatchSize         = 32
	defaultTTSBaseURL        = "http://127.0.0.1:8020"
	defaultTTSLanguage       = "zh-cn"
	defaultTTSTimeout        = 120
	defaultTTSAttempts       = 3
	defaultTTSMaxChars       = 80
	defaultTTSLookback       = 30
	defaultTTSMaxRepeats     = 2
	defaultTTSMaxTempo       = 1.3
	defaultSpeedUp           = 1.05
	defaultFPS               = 30
	defaultEncoder           = "auto"
	defaultQuality           = "high"
	defaultMaxLineChars      = 30
	defaultUploadBinary      = "biliup"
	defaultUploadTid         = 201
	defaultUploadAttempts    = 5
	defaultUploadRetryDelay  = 10
	defaultMaxWorkers        = 1
	defaultMaxRetries        = 3
	defaultNumVideos         = 5
	defaultNotifyTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RootFolder: defaultRootFolder,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
			Compress:      true,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		Translation: Translation{
			TargetLanguage:    defaultTargetLanguage,
			SummaryRetries:    defaultSummaryRetries,
			UtteranceRetries:  defaultUtteranceRetries,
			HistoryTurns:      defaultHistoryTurns,
			TranscriptBudget:  defaultTranscriptBudget,
			RetryDelaySeconds: defaultTranslationDelay,
		},
		Download: Download{
			Binary:     defaultDownloadBinary,
			Resolution: defaultResolution,
		},
		Separation: Separation{
			Binary: defaultSeparationBinary,
			Model:  defaultSeparationModel,
			Device: defaultDevice,
			Shifts: defaultShifts,
		},
		Transcription: Transcription{
			Binary:      defaultWhisperXBinary,
			Model:       defaultWhisperXModel,
			Device:      defaultDevice,
			BatchSize:   defaultBatchSize,
			Diarization: true,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Language:       defaultTTSLanguage,
			TimeoutSeconds: defaultTTSTimeout,
			Attempts:       defaultTTSAttempts,
			MaxChars:       defaultTTSMaxChars,
			Lookback:       defaultTTSLookback,
			MaxRepeats:     defaultTTSMaxRepeats,
			MaxTempo:       defaultTTSMaxTempo,
		},
		Synthesis: Synthesis{
			SpeedUp:      defaultSpeedUp,
			FPS:          defaultFPS,
			Resolution:   defaultResolution,
			Encoder:      defaultEncoder,
			Quality:      defaultQuality,
			Subtitles:    true,
			MaxLineChars: defaultMaxLineChars,
		},
		Upload: Upload{
			Binary:            defaultUploadBinary,
			Tid:               defaultUploadTid,
			Attempts:          defaultUploadAttempts,
			RetryDelaySeconds: defaultUploadRetryDelay,
		},
		Fleet: Fleet{
			MaxWorkers: defaultMaxWorkers,
			MaxRetries: defaultMaxRetries,
			NumVideos:  defaultNumVideos,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			VideoFailures:  true,
			RunSummary:     true,
		},
	}
}
