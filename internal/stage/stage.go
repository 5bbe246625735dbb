package stage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"youdub/internal/logging"
	"youdub/internal/services"
)

// Stage is one idempotent unit of per-folder work. Completion is judged by
// Done, never by Run's return value.
type Stage interface {
	Name() string
	// Ready reports whether the stage's input artifacts exist in folder.
	Ready(folder string) bool
	// Done reports whether the stage's output artifact exists in folder.
	Done(folder string) bool
	// Run performs the work. It is only called when Ready is true and Done
	// is false.
	Run(ctx context.Context, folder string) error
}

// Releaser is implemented by stages that hold a heavyweight model and must
// free its memory once a folder is finished.
type Releaser interface {
	Release(ctx context.Context) error
}

// Status is the result of executing a stage against one folder.
type Status int

const (
	// StatusNotReady means the inputs were missing; nothing ran.
	StatusNotReady Status = iota
	// StatusAlreadyDone means the output existed; nothing ran.
	StatusAlreadyDone
	// StatusRan means Run completed and the output now exists.
	StatusRan
	// StatusFailed means Run returned an error or left no output.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotReady:
		return "not_ready"
	case StatusAlreadyDone:
		return "already_done"
	case StatusRan:
		return "ran"
	default:
		return "failed"
	}
}

// Execute runs s on folder when its inputs exist and its output does not.
// A Run that returns nil without producing the output is reported as a
// failure.
func Execute(ctx context.Context, s Stage, folder string, logger *slog.Logger) (Status, error) {
	if s.Done(folder) {
		return StatusAlreadyDone, nil
	}
	if !s.Ready(folder) {
		return StatusNotReady, nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx = services.WithStage(ctx, s.Name())
	logger = logging.WithContext(ctx, logger).With(logging.String(logging.FieldFolder, folder))

	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()
	err := s.Run(ctx, folder)
	if err == nil && !s.Done(folder) {
		err = services.Wrap(services.ErrExternalTool, s.Name(), "verify", "stage finished without producing its output", nil)
	}
	if err != nil {
		if services.IsSkip(err) {
			logger.Info("stage skipped folder",
				logging.String(logging.FieldEventType, "stage_skip"),
				logging.String("reason", err.Error()),
			)
		} else {
			logging.WarnWithContext(logger, "stage failed", "stage_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Duration("duration", time.Since(started)),
			)
		}
		return StatusFailed, err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(started)),
	)
	return StatusRan, nil
}

// Failure is one folder whose stage run returned an error.
type Failure struct {
	Folder string
	Err    error
}

// Report tallies a Walk.
type Report struct {
	Stage       string
	Ran         int
	AlreadyDone int
	NotReady    int
	Failures    []Failure
}

// Err joins the per-folder failures, or returns nil.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Folder, f.Err))
	}
	return errors.Join(errs...)
}

// String renders a one-line summary for display.
func (r Report) String() string {
	return fmt.Sprintf("%s: %d processed, %d already done, %d not ready, %d failed",
		r.Stage, r.Ran, r.AlreadyDone, r.NotReady, len(r.Failures))
}

// Walk executes s on root and every directory below it. A failing folder is
// recorded and the walk moves on; only context cancellation stops it early.
// Hidden directories are not visited.
func Walk(ctx context.Context, root string, s Stage, logger *slog.Logger) (Report, error) {
	report := Report{Stage: s.Name()}
	if _, err := os.Stat(root); err != nil {
		return report, services.Wrap(services.ErrNotFound, s.Name(), "walk", "root folder unavailable", err)
	}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// An unreadable subtree is skipped, siblings continue.
			if entry != nil && entry.IsDir() && path != root {
				return filepath.SkipDir
			}
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		status, runErr := Execute(ctx, s, path, logger)
		switch status {
		case StatusRan:
			report.Ran++
		case StatusAlreadyDone:
			report.AlreadyDone++
		case StatusNotReady:
			report.NotReady++
		case StatusFailed:
			if errors.Is(runErr, context.Canceled) {
				return runErr
			}
			report.Failures = append(report.Failures, Failure{Folder: path, Err: runErr})
		}
		return nil
	})
	return report, err
}
