package bilibili

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"youdub/internal/logging"
	"youdub/internal/services"
	"youdub/internal/workdir"
)

var bvidPattern = regexp.MustCompile(`BV[0-9A-Za-z]{10}`)

// Config captures upload settings.
type Config struct {
	Binary     string
	CookieFile string
	// Tid is the bilibili category (201 = science popularization).
	Tid        int
	Attempts   int
	RetryDelay time.Duration
}

// Publisher uploads videos with biliup.
type Publisher struct {
	cfg    Config
	runner services.CommandRunner
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithSleeper replaces the pause between attempts.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Publisher) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// New constructs a Publisher. runner may be nil.
func New(cfg Config, runner services.CommandRunner, logger *slog.Logger, opts ...Option) *Publisher {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "biliup"
	}
	if cfg.Tid <= 0 {
		cfg.Tid = 201
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 5
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Publisher{
		cfg:    cfg,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "bilibili"),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckCredentials verifies the cookie file exists and is non-empty.
func (p *Publisher) CheckCredentials() error {
	path := strings.TrimSpace(p.cfg.CookieFile)
	if path == "" {
		return services.Wrap(services.ErrConfiguration, "upload", "credentials", "upload.cookie_file is not set (run `biliup login` first)", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "upload", "credentials", "cookie file unreadable", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrConfiguration, "upload", "credentials", "cookie file is empty", nil)
	}
	return nil
}

// Publish uploads folder's video.mp4 and writes bilibili.json on success.
func (p *Publisher) Publish(ctx context.Context, folder string) error {
	if workdir.Uploaded(folder) {
		return nil
	}
	if err := p.CheckCredentials(); err != nil {
		return err
	}
	summary, err := workdir.ReadSummary(folder)
	if err != nil {
		return err
	}
	descriptor, err := workdir.ReadDescriptor(folder)
	if err != nil {
		return err
	}
	if !workdir.Has(folder, workdir.FileFinalVideo) {
		return services.Wrap(services.ErrNotFound, "upload", "video", workdir.FileFinalVideo+" missing", nil)
	}
	args := p.buildArgs(folder, descriptor, summary)

	var lastErr error
	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		output, err := services.Run(ctx, p.runner, p.cfg.Binary, args...)
		if err == nil {
			record := workdir.SubmissionRecord{Results: []workdir.SubmissionResult{{
				Code:    0,
				Message: "ok",
				BVID:    bvidPattern.FindString(string(output)),
			}}}
			p.logger.Info("video published",
				logging.String("bvid", record.Results[0].BVID),
				logging.Int(logging.FieldAttempt, attempt),
				logging.String(logging.FieldEventType, "upload_complete"),
			)
			return workdir.WriteSubmission(folder, record)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		logging.WarnWithContext(p.logger, "upload attempt failed", "upload_retry",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("attempts", p.cfg.Attempts),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cookies may have expired; re-run `biliup login`"),
		)
		if attempt < p.cfg.Attempts {
			if err := p.sleep(ctx, p.cfg.RetryDelay); err != nil {
				return err
			}
		}
	}
	return services.Wrap(services.ErrExternalTool, "upload", "biliup", fmt.Sprintf("failed after %d attempts", p.cfg.Attempts), lastErr)
}

func (p *Publisher) buildArgs(folder string, d *workdir.Descriptor, s workdir.Summary) []string {
	args := []string{
		"-u", p.cfg.CookieFile,
		"upload", workdir.Path(folder, workdir.FileFinalVideo),
		"--title", Title(s),
		"--desc", Description(d, s),
		"--tid", strconv.Itoa(p.cfg.Tid),
		"--tag", strings.Join(Tags(s), ","),
		"--copyright", "2",
	}
	if d != nil && d.WebpageURL != "" {
		args = append(args, "--source", d.WebpageURL)
	}
	if workdir.Has(folder, workdir.FileCover) {
		args = append(args, "--cover", workdir.Path(folder, workdir.FileCover))
	}
	return args
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
