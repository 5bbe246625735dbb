package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"youdub/internal/config"
	"youdub/internal/language"
	"youdub/internal/logging"
	"youdub/internal/media/ffmpeg"
	"youdub/internal/media/ffprobe"
	"youdub/internal/models"
	"youdub/internal/services"
	"youdub/internal/services/bilibili"
	"youdub/internal/services/demucs"
	"youdub/internal/services/llm"
	"youdub/internal/services/whisperx"
	"youdub/internal/services/xtts"
	"youdub/internal/services/ytdlp"
	"youdub/internal/stage"
	"youdub/internal/stages"
	"youdub/internal/terminology"
	"youdub/internal/translation"
	"youdub/internal/ttsguard"
	"youdub/internal/workflow"
)

// app holds the collaborators built from one configuration. The model
// holders are process-wide: every worker shares them.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	encoder   *ffmpeg.Encoder
	prober    ffprobe.Prober
	resolver  *ytdlp.Client
	publisher *bilibili.Publisher
	terms     *terminology.Enforcer

	separator   *models.Holder[stages.Separator]
	transcriber *models.Holder[stages.Transcriber]
	synthesizer *models.Holder[stages.Synthesizer]

	stages []stage.Stage
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	terms, err := terminology.Load(cfg.Paths.TerminologyFile)
	if err != nil {
		return nil, fmt.Errorf("load terminology: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		encoder: ffmpeg.New(cfg.FFmpegBinary(), nil, logging.NewComponentLogger(logger, "ffmpeg")),
		prober:  ffprobe.Prober{Binary: cfg.FFprobeBinary()},
		terms:   terms,
	}
	a.resolver = ytdlp.New(ytdlp.Config{
		Binary:      cfg.Download.Binary,
		Resolution:  cfg.Download.Resolution,
		CookiesFile: cfg.Download.CookiesFile,
	}, nil, logging.NewComponentLogger(logger, "ytdlp"))
	a.publisher = bilibili.New(bilibili.Config{
		Binary:     cfg.Upload.Binary,
		CookieFile: cfg.Upload.CookieFile,
		Tid:        cfg.Upload.Tid,
		Attempts:   cfg.Upload.Attempts,
		RetryDelay: time.Duration(cfg.Upload.RetryDelaySeconds) * time.Second,
	}, nil, logging.NewComponentLogger(logger, "bilibili"))

	a.separator = models.NewHolder("demucs", func(context.Context) (stages.Separator, error) {
		if err := lookPath(cfg.Separation.Binary, "separate"); err != nil {
			return nil, err
		}
		return demucs.New(demucs.Config{
			Binary: cfg.Separation.Binary,
			Model:  cfg.Separation.Model,
			Device: services.ResolveDevice(cfg.Separation.Device),
			Shifts: cfg.Separation.Shifts,
		}, a.encoder, nil), nil
	})
	a.transcriber = models.NewHolder("whisperx", func(ctx context.Context) (stages.Transcriber, error) {
		svc := whisperx.NewService(whisperx.Config{
			Binary:      cfg.Transcription.Binary,
			Model:       cfg.Transcription.Model,
			Device:      services.ResolveDevice(cfg.Transcription.Device),
			BatchSize:   cfg.Transcription.BatchSize,
			Diarize:     cfg.Transcription.Diarization,
			MinSpeakers: cfg.Transcription.MinSpeakers,
			MaxSpeakers: cfg.Transcription.MaxSpeakers,
			HFToken:     cfg.Transcription.HFToken,
		})
		if err := svc.Check(ctx); err != nil {
			return nil, err
		}
		return svc, nil
	})
	a.synthesizer = models.NewHolder("xtts", func(ctx context.Context) (stages.Synthesizer, error) {
		client := xtts.New(xtts.Config{
			BaseURL:  cfg.TTS.BaseURL,
			Language: a.ttsLanguage(),
			Timeout:  time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
			Attempts: cfg.TTS.Attempts,
		})
		if err := client.Health(ctx); err != nil {
			return nil, err
		}
		return client, nil
	})

	a.stages = a.buildStages()
	return a, nil
}

func (a *app) ttsLanguage() string {
	if a.cfg.TTS.Language != "" {
		return a.cfg.TTS.Language
	}
	return language.TTSCode(a.cfg.Translation.TargetLanguage)
}

func (a *app) translator() *translation.Translator {
	cfg := a.cfg
	chat := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		TimeoutSeconds:    cfg.LLM.TimeoutSeconds,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		ExtraBody:         cfg.LLM.ExtraBody,
	})
	return translation.New(chat, a.terms, translation.Options{
		TargetLanguage:          cfg.Translation.TargetLanguage,
		SummaryRetries:          cfg.Translation.SummaryRetries,
		UtteranceRetries:        cfg.Translation.UtteranceRetries,
		HistoryMessages:         cfg.Translation.HistoryTurns,
		TranscriptBudget:        cfg.Translation.TranscriptBudget,
		RetryDelay:              time.Duration(cfg.Translation.RetryDelaySeconds) * time.Second,
		FallbackToLastCandidate: cfg.Translation.FallbackToLastCandidate,
	}, translation.WithLogger(a.stageLogger("translate")))
}

func (a *app) stageLogger(name string) *slog.Logger {
	return logging.ForStage(logging.NewComponentLogger(a.logger, name), a.cfg.Logging.StageOverrides, name)
}

// buildStages returns the ordered per-video sequence.
func (a *app) buildStages() []stage.Stage {
	cfg := a.cfg
	seq := []stage.Stage{
		stages.NewDownload(a.resolver),
		stages.NewExtractAudio(a.encoder),
		stages.NewSeparate(a.separator),
		stages.NewTranscribe(a.transcriber),
		stages.NewTranslate(a.translator(), a.stageLogger("translate")),
		stages.NewSpeak(a.synthesizer, a.encoder, a.prober, stages.SpeakOptions{
			Guard: ttsguard.Guard{
				MaxChars:   cfg.TTS.MaxChars,
				Lookback:   cfg.TTS.Lookback,
				MaxRepeats: cfg.TTS.MaxRepeats,
			},
			Language: a.ttsLanguage(),
			MaxTempo: cfg.TTS.MaxTempo,
			Logger:   a.stageLogger("speak"),
		}),
		stages.NewMux(a.encoder, a.prober, stages.MuxOptions{
			SpeedUp:      cfg.Synthesis.SpeedUp,
			FPS:          cfg.Synthesis.FPS,
			Resolution:   cfg.Synthesis.Resolution,
			Encoder:      cfg.Synthesis.Encoder,
			Quality:      cfg.Synthesis.Quality,
			Subtitles:    cfg.Synthesis.Subtitles,
			MaxLineChars: cfg.Synthesis.MaxLineChars,
		}, a.stageLogger("mux")),
		stages.NewMetadata(a.encoder),
	}
	if cfg.Upload.Enabled {
		seq = append(seq, stages.NewUpload(a.publisher))
	}
	return seq
}

// stage returns the configured stage with name, including upload even when
// it is disabled for full runs.
func (a *app) stage(name string) (stage.Stage, bool) {
	if name == "upload" {
		return stages.NewUpload(a.publisher), true
	}
	for _, s := range a.stages {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

func (a *app) warmers() []models.Warmer {
	return []models.Warmer{a.separator, a.transcriber, a.synthesizer}
}

func (a *app) pipeline() *workflow.Pipeline {
	return workflow.New(a.cfg.Paths.RootFolder, a.stages,
		workflow.WithMaxRetries(a.cfg.Fleet.MaxRetries),
		workflow.WithLogger(a.logger),
	)
}

// loadApp builds the app for the current command's configuration.
func (c *commandContext) loadApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger)
}

func lookPath(binary, stageName string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "lookup", fmt.Sprintf("binary %q not found", binary), err)
	}
	return nil
}
