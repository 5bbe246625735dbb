package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"youdub/internal/logging"
	"youdub/internal/services"
	"youdub/internal/stage"
	"youdub/internal/workdir"
)

// DefaultMaxRetries is the number of whole-sequence attempts per video.
const DefaultMaxRetries = 3

// Pipeline runs the ordered stage sequence for one video at a time. It is
// safe for concurrent use when its stages are.
type Pipeline struct {
	root       string
	stages     []stage.Stage
	maxRetries int
	retryDelay time.Duration
	sleep      func(context.Context, time.Duration) error
	reclaim    func()
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxRetries sets the number of attempts per video. Values below one
// mean a single attempt.
func WithMaxRetries(n int) Option {
	return func(p *Pipeline) { p.maxRetries = n }
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.retryDelay = d }
}

// WithSleeper replaces the delay implementation (tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// WithMemoryReclaim replaces the heap reclamation run after each releasing
// stage.
func WithMemoryReclaim(fn func()) Option {
	return func(p *Pipeline) { p.reclaim = fn }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New builds a pipeline that places video folders under root and runs
// stages in the given order.
func New(root string, stages []stage.Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		root:       root,
		stages:     stages,
		maxRetries: DefaultMaxRetries,
		sleep:      sleepContext,
		reclaim:    debug.FreeOSMemory,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxRetries < 1 {
		p.maxRetries = 1
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	return p
}

// Stages returns the configured sequence.
func (p *Pipeline) Stages() []stage.Stage { return p.stages }

// ProcessVideo takes one video from descriptor to its final artifact.
// A folder that already carries an accepted submission record is reported
// as succeeded without running any stage.
func (p *Pipeline) ProcessVideo(ctx context.Context, d *workdir.Descriptor) Result {
	started := time.Now()
	result := Result{}
	if d != nil {
		result.VideoID, result.Title, result.URL = d.ID, d.Title, d.WebpageURL
		ctx = services.WithVideoID(ctx, d.ID)
	}
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldComponent, "workflow"))

	finish := func(outcome Outcome, err error) Result {
		result.Outcome, result.Err = outcome, err
		result.Duration = time.Since(started)
		p.logOutcome(logger, result)
		return result
	}

	if d == nil {
		return finish(OutcomeSkipped, services.Skip("resolve", "no descriptor"))
	}
	folder, err := workdir.FolderFor(p.root, d)
	if err != nil {
		return finish(OutcomeSkipped, err)
	}
	result.Folder = folder
	logger = logger.With(logging.String(logging.FieldFolder, folder))

	if workdir.Uploaded(folder) {
		logger.Info("video already submitted", logging.String(logging.FieldEventType, "video_complete"))
		result.Outcome = OutcomeSucceeded
		result.Duration = time.Since(started)
		return result
	}

	logger.Info("video started",
		logging.String(logging.FieldEventType, "video_start"),
		logging.String("title", d.Title),
		logging.String("url", d.WebpageURL),
	)

	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		result.Attempts = attempt
		attemptCtx := services.WithRequestID(ctx, uuid.NewString())
		lastErr = p.runSequence(attemptCtx, d, folder, logger.With(logging.Int(logging.FieldAttempt, attempt)))
		switch {
		case lastErr == nil:
			return finish(OutcomeSucceeded, nil)
		case services.IsSkip(lastErr):
			return finish(OutcomeSkipped, lastErr)
		case !services.IsRetryable(lastErr):
			return finish(OutcomeFailed, lastErr)
		}
		logger.Warn("video attempt failed",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("max_attempts", p.maxRetries),
			logging.String(logging.FieldErrorKind, services.Kind(lastErr)),
			logging.Error(lastErr),
		)
		if attempt < p.maxRetries && p.retryDelay > 0 {
			if err := p.sleep(ctx, p.retryDelay); err != nil {
				return finish(OutcomeFailed, err)
			}
		}
	}
	return finish(OutcomeFailed, fmt.Errorf("%d attempts exhausted: %w", p.maxRetries, lastErr))
}

// runSequence executes every stage once in order. A stage that neither ran
// nor was already done leaves the video incomplete.
func (p *Pipeline) runSequence(ctx context.Context, d *workdir.Descriptor, folder string, logger *slog.Logger) error {
	if !workdir.Has(folder, workdir.FileInfo) {
		if err := workdir.WriteDescriptor(folder, d); err != nil {
			return err
		}
	}
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		status, err := stage.Execute(ctx, s, folder, logger)
		p.release(ctx, s, logger)
		if err != nil {
			return err
		}
		if status == stage.StatusNotReady {
			return services.Wrap(services.ErrValidation, s.Name(), "ready", "inputs missing after previous stages", nil)
		}
	}
	return nil
}

// release frees a stage's model memory and reclaims heap. Release failures
// are logged and never fail the video.
func (p *Pipeline) release(ctx context.Context, s stage.Stage, logger *slog.Logger) {
	releaser, ok := s.(stage.Releaser)
	if !ok {
		return
	}
	if err := releaser.Release(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("memory release failed",
			logging.String(logging.FieldStage, s.Name()),
			logging.String(logging.FieldEventType, "memory_release"),
			logging.Error(err),
		)
	}
	if p.reclaim != nil {
		p.reclaim()
	}
	logger.Debug("memory released",
		logging.String(logging.FieldStage, s.Name()),
		logging.String(logging.FieldEventType, "memory_release"),
	)
}

func (p *Pipeline) logOutcome(logger *slog.Logger, r Result) {
	attrs := []logging.Attr{
		logging.Int("attempts", r.Attempts),
		logging.Duration("duration", r.Duration),
	}
	switch r.Outcome {
	case OutcomeSucceeded:
		logger.Info("video completed", logging.Args(append(attrs, logging.String(logging.FieldEventType, "video_complete"))...)...)
	case OutcomeSkipped:
		logger.Info("video skipped", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, "video_skipped"),
			logging.String("reason", errorText(r.Err)),
		)...)...)
	default:
		logging.ErrorWithContext(logger, "video failed", "video_failed", append(attrs,
			logging.String(logging.FieldErrorKind, services.Kind(r.Err)),
			logging.Error(r.Err),
		)...)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
