package stages

import (
	"context"
	"log/slog"

	"youdub/internal/logging"
	"youdub/internal/services"
	"youdub/internal/translation"
	"youdub/internal/workdir"
)

// Translate summarizes the video, translates every utterance and writes
// the sentence-level translation.json. Accepted translations are
// checkpointed to translation_raw.json so an interrupted run resumes where it
// stopped.
type Translate struct {
	translator Translator
	logger     *slog.Logger
}

// NewTranslate constructs the translation stage.
func NewTranslate(t Translator, logger *slog.Logger) *Translate {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Translate{translator: t, logger: logger}
}

func (s *Translate) Name() string { return "translate" }

func (s *Translate) Ready(folder string) bool { return workdir.Transcribed(folder) }

func (s *Translate) Done(folder string) bool { return workdir.Translated(folder) }

func (s *Translate) Run(ctx context.Context, folder string) error {
	transcript, err := workdir.ReadTranscript(folder)
	if err != nil {
		return err
	}
	if len(transcript) == 0 {
		return services.Skip(s.Name(), "transcript is empty")
	}
	descriptor, err := workdir.ReadDescriptor(folder)
	if err != nil {
		return err
	}

	summary, err := s.summary(ctx, folder, descriptor, transcript)
	if err != nil {
		return err
	}

	done, err := workdir.ReadCheckpoint(folder)
	if err != nil {
		return err
	}
	if len(done) > 0 {
		s.logger.Info("resuming translation",
			logging.Int("translated", len(done)),
			logging.Int("total", len(transcript)),
		)
	}
	translations, err := s.translator.TranslateUtterances(ctx, summary, transcript, done, func(done []string) error {
		return workdir.WriteCheckpoint(folder, done)
	})
	if err != nil {
		return err
	}
	for i := range transcript {
		transcript[i].Translation = translations[i]
	}
	return workdir.WriteTranslation(folder, translation.SplitUtterances(transcript))
}

func (s *Translate) summary(ctx context.Context, folder string, d *workdir.Descriptor, transcript []workdir.Utterance) (workdir.Summary, error) {
	if workdir.Summarized(folder) {
		return workdir.ReadSummary(folder)
	}
	summary, err := s.translator.Summarize(ctx, d, transcript)
	if err != nil {
		return summary, err
	}
	return summary, workdir.WriteSummary(folder, summary)
}

// Release is a no-op: the LLM backend holds no local device memory, but the
// stage still marks a point where the workflow reclaims heap.
func (s *Translate) Release(context.Context) error { return nil }
