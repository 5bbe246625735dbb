package translation

import (
	"context"
	"log/slog"
	"time"

	"youdub/internal/logging"
	"youdub/internal/services/llm"
	"youdub/internal/terminology"
)

// Chatter is the chat completion backend the translator depends on.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Options tunes retry budgets and context sizes.
type Options struct {
	TargetLanguage   string
	SummaryRetries   int
	UtteranceRetries int
	// HistoryMessages is the number of trailing history messages (user and
	// assistant turns counted separately) sent with each request. Zero means
	// the default; negative disables history.
	HistoryMessages  int
	TranscriptBudget int
	RetryDelay       time.Duration
	// FallbackToLastCandidate accepts the last rejected candidate when an
	// utterance exhausts its retries instead of failing the video.
	FallbackToLastCandidate bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		TargetLanguage:   "简体中文",
		SummaryRetries:   5,
		UtteranceRetries: 30,
		HistoryMessages:  30,
		TranscriptBudget: 2000,
		RetryDelay:       time.Second,
	}
}

// Translator runs summarization and per-utterance translation for one video
// at a time. It holds no per-video state and is safe for concurrent use when
// its Chatter is.
type Translator struct {
	chat   Chatter
	terms  *terminology.Enforcer
	gate   Gate
	opts   Options
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// Option customizes a Translator.
type Option func(*Translator)

// WithGate overrides the quality gate.
func WithGate(g Gate) Option {
	return func(t *Translator) { t.gate = g }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithSleeper replaces the delay between retries (tests use a no-op).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(t *Translator) {
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

// New builds a Translator. A nil enforcer disables terminology replacement.
func New(chat Chatter, terms *terminology.Enforcer, opts Options, options ...Option) *Translator {
	defaults := DefaultOptions()
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = defaults.TargetLanguage
	}
	if opts.SummaryRetries <= 0 {
		opts.SummaryRetries = defaults.SummaryRetries
	}
	if opts.UtteranceRetries <= 0 {
		opts.UtteranceRetries = defaults.UtteranceRetries
	}
	switch {
	case opts.HistoryMessages == 0:
		opts.HistoryMessages = defaults.HistoryMessages
	case opts.HistoryMessages < 0:
		opts.HistoryMessages = 0
	}
	if opts.TranscriptBudget <= 0 {
		opts.TranscriptBudget = defaults.TranscriptBudget
	}
	t := &Translator{
		chat:   chat,
		terms:  terms,
		gate:   DefaultGate(),
		opts:   opts,
		logger: logging.NewNop(),
		sleep:  sleepContext,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Translator) applyTerms(text string) string {
	if t.terms == nil {
		return text
	}
	return t.terms.Apply(text)
}
