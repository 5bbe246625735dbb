package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"youdub/internal/ledger"
	"youdub/internal/logging"
	"youdub/internal/models"
	"youdub/internal/notifications"
	"youdub/internal/services"
	"youdub/internal/textutil"
	"youdub/internal/workdir"
	"youdub/internal/workflow"
)

// LockFile is created in the root folder while a fleet runs.
const LockFile = ".youdub.lock"

// ErrLocked reports that another fleet holds the root folder.
var ErrLocked = errors.New("root folder is locked by another run")

// Resolver expands source URLs into video descriptors.
type Resolver interface {
	Resolve(ctx context.Context, urls []string, limit int) iter.Seq[*workdir.Descriptor]
}

// Processor runs the per-video pipeline.
type Processor interface {
	ProcessVideo(ctx context.Context, d *workdir.Descriptor) workflow.Result
}

// Recorder persists run history. *ledger.Ledger satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, run ledger.Run) error
	RecordVideo(ctx context.Context, v ledger.Video) error
	FinishRun(ctx context.Context, id string, succeeded, failed, skipped int, runErr error) error
}

// Fleet coordinates a multi-video run.
type Fleet struct {
	root      string
	resolver  Resolver
	processor Processor
	warmers   []models.Warmer
	workers   int
	recorder  Recorder
	notifier  notifications.Service
	logger    *slog.Logger
	runLogDir string
	logLevel  string
}

// Option configures a Fleet.
type Option func(*Fleet)

// WithWarmers registers model holders to construct before dispatch.
func WithWarmers(w ...models.Warmer) Option {
	return func(f *Fleet) { f.warmers = append(f.warmers, w...) }
}

// WithWorkers bounds video-level parallelism.
func WithWorkers(n int) Option {
	return func(f *Fleet) { f.workers = n }
}

// WithRecorder records runs and outcomes.
func WithRecorder(r Recorder) Option {
	return func(f *Fleet) { f.recorder = r }
}

// WithNotifier sets the notification service.
func WithNotifier(n notifications.Service) Option {
	return func(f *Fleet) { f.notifier = n }
}

// WithLogger sets the fleet logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fleet) { f.logger = logger }
}

// WithRunLogs writes a JSON log per run into dir.
func WithRunLogs(dir, level string) Option {
	return func(f *Fleet) { f.runLogDir, f.logLevel = dir, level }
}

// New builds a fleet over root.
func New(root string, resolver Resolver, processor Processor, opts ...Option) *Fleet {
	f := &Fleet{root: root, resolver: resolver, processor: processor, workers: 1}
	for _, opt := range opts {
		opt(f)
	}
	if f.workers < 1 {
		f.workers = 1
	}
	if f.notifier == nil {
		f.notifier = notifications.NewService(nil)
	}
	if f.logger == nil {
		f.logger = logging.NewNop()
	}
	return f
}

// Summary is the tally of one run.
type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
	Skipped   int
	Results   []workflow.Result
	Duration  time.Duration
}

// Total is the number of videos dispatched.
func (s Summary) Total() int { return s.Succeeded + s.Failed + s.Skipped }

func (s Summary) String() string {
	return fmt.Sprintf("Success: %d / Fail: %d / Skipped: %d", s.Succeeded, s.Failed, s.Skipped)
}

// DoEverything resolves rawURLs (comma, full-width comma or space
// separated) into at most limit videos per URL and processes them. An error
// is returned only when the run could not start; per-video failures are
// reported in the Summary.
func (f *Fleet) DoEverything(ctx context.Context, rawURLs string, limit int) (Summary, error) {
	started := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	urls := textutil.SplitURLs(rawURLs)
	if len(urls) == 0 {
		return summary, services.Wrap(services.ErrValidation, "fleet", "urls", "no source URLs given", nil)
	}

	unlock, err := f.lock()
	if err != nil {
		return summary, err
	}
	defer unlock()

	ctx = services.WithRunID(ctx, summary.RunID)
	logger, closeLog := f.runLogger(summary.RunID)
	defer closeLog()
	logger = logging.WithContext(ctx, logger).With(logging.String(logging.FieldComponent, "fleet"))

	f.startRun(ctx, logger, summary.RunID, urls)
	_ = f.notifier.NotifyRunStarted(ctx, len(urls))

	runErr := f.run(ctx, logger, urls, limit, &summary)
	summary.Duration = time.Since(started)

	f.finishRun(ctx, logger, summary, runErr)
	_ = f.notifier.NotifyRunCompleted(ctx, summary.Succeeded, summary.Failed, summary.Skipped, summary.Duration)
	logger.Info("fleet finished",
		logging.String(logging.FieldEventType, "fleet_summary"),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration),
	)
	return summary, runErr
}

func (f *Fleet) run(ctx context.Context, logger *slog.Logger, urls []string, limit int, summary *Summary) error {
	if err := f.warm(ctx, logger); err != nil {
		return err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	claimed := make(map[string]bool)
	resolved := 0
	// g.Go blocks while every worker is busy, so later URLs resolve only
	// as capacity frees up.
	for d := range f.resolver.Resolve(gctx, urls, limit) {
		if gctx.Err() != nil {
			break
		}
		if d == nil {
			continue
		}
		resolved++
		key := folderKey(f.root, d)
		if key != "" && claimed[key] {
			logger.Info("duplicate video dropped",
				logging.String(logging.FieldEventType, "duplicate_video"),
				logging.String("video_id", d.ID),
				logging.String("title", d.Title),
			)
			continue
		}
		claimed[key] = true
		g.Go(func() error {
			result := f.processor.ProcessVideo(gctx, d)
			mu.Lock()
			summary.Results = append(summary.Results, result)
			switch result.Outcome {
			case workflow.OutcomeSucceeded:
				summary.Succeeded++
			case workflow.OutcomeSkipped:
				summary.Skipped++
			default:
				summary.Failed++
			}
			mu.Unlock()
			f.recordVideo(ctx, logger, summary.RunID, result)
			if result.Outcome == workflow.OutcomeFailed {
				_ = f.notifier.NotifyVideoFailed(ctx, result.Title, result.Err)
			}
			// Per-video failures never cancel siblings.
			return nil
		})
	}
	_ = g.Wait()
	logger.Info("videos resolved", logging.Int("videos", resolved), logging.Int("urls", len(urls)))
	return ctx.Err()
}

// folderKey identifies the working folder a descriptor maps to. Two
// descriptors with the same key would race on the same artifacts. An empty
// key means the descriptor has no folder and the pipeline will skip it.
func folderKey(root string, d *workdir.Descriptor) string {
	folder, err := workdir.FolderFor(root, d)
	if err == nil {
		return folder
	}
	if d.ID != "" {
		return "id:" + d.ID
	}
	return ""
}

// warm constructs every model holder concurrently. A holder that cannot be
// constructed fails the run before any video starts.
func (f *Fleet) warm(ctx context.Context, logger *slog.Logger) error {
	if len(f.warmers) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range f.warmers {
		g.Go(func() error {
			start := time.Now()
			if err := w.Warm(gctx); err != nil {
				return fmt.Errorf("warm %s: %w", w.Name(), err)
			}
			logger.Info("model ready", logging.String("model", w.Name()), logging.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	return g.Wait()
}

func (f *Fleet) lock() (func(), error) {
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "fleet", "root", "create root folder", err)
	}
	lock := flock.New(filepath.Join(f.root, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, f.root)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (f *Fleet) runLogger(runID string) (*slog.Logger, func()) {
	if f.runLogDir == "" {
		return f.logger, func() {}
	}
	path := filepath.Join(f.runLogDir, "run-"+time.Now().Format("20060102-150405")+"-"+runID[:8]+".log")
	handler, closer, err := logging.OpenRunLog(path, f.logLevel)
	if err != nil {
		f.logger.Warn("run log unavailable", logging.String("path", path), logging.Error(err))
		return f.logger, func() {}
	}
	return logging.TeeLogger(f.logger, handler), func() { closeQuietly(closer) }
}

func (f *Fleet) startRun(ctx context.Context, logger *slog.Logger, runID string, urls []string) {
	if f.recorder == nil {
		return
	}
	run := ledger.Run{ID: runID, URLs: urls, RootFolder: f.root, Workers: f.workers, StartedAt: time.Now()}
	if err := f.recorder.StartRun(ctx, run); err != nil {
		logger.Warn("ledger start failed", logging.Error(err))
	}
}

func (f *Fleet) recordVideo(ctx context.Context, logger *slog.Logger, runID string, r workflow.Result) {
	if f.recorder == nil {
		return
	}
	v := ledger.Video{
		RunID:    runID,
		VideoID:  r.VideoID,
		Title:    r.Title,
		URL:      r.URL,
		Folder:   r.Folder,
		Outcome:  r.Outcome.String(),
		Attempts: r.Attempts,
		Duration: r.Duration,
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	if err := f.recorder.RecordVideo(context.WithoutCancel(ctx), v); err != nil {
		logger.Warn("ledger record failed", logging.Error(err))
	}
}

func (f *Fleet) finishRun(ctx context.Context, logger *slog.Logger, s Summary, runErr error) {
	if f.recorder == nil {
		return
	}
	if err := f.recorder.FinishRun(context.WithoutCancel(ctx), s.RunID, s.Succeeded, s.Failed, s.Skipped, runErr); err != nil {
		logger.Warn("ledger finish failed", logging.Error(err))
	}
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
