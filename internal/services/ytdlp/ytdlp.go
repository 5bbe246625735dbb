package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"youdub/internal/logging"
	"youdub/internal/services"
	"youdub/internal/workdir"
)

// Config captures yt-dlp settings.
type Config struct {
	Binary string
	// Resolution caps the downloaded video height ("1080p", "720", "best").
	Resolution  string
	CookiesFile string
}

// Client resolves and downloads videos through the yt-dlp CLI.
type Client struct {
	cfg    Config
	runner services.CommandRunner
	logger *slog.Logger
}

// New constructs a Client. runner may be nil.
func New(cfg Config, runner services.CommandRunner, logger *slog.Logger) *Client {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "yt-dlp"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{cfg: cfg, runner: runner, logger: logging.NewComponentLogger(logger, "ytdlp")}
}

// Resolve lazily expands urls (single videos, playlists or channels) into
// video descriptors, capping each playlist at limit entries. Each URL is
// resolved only when the consumer asks for more; a URL that fails to
// resolve is logged and skipped, the others still contribute.
func (c *Client) Resolve(ctx context.Context, urls []string, limit int) iter.Seq[*workdir.Descriptor] {
	return func(yield func(*workdir.Descriptor) bool) {
		for _, url := range urls {
			if ctx.Err() != nil {
				return
			}
			descriptors, err := c.resolveOne(ctx, url, limit)
			if err != nil {
				logging.WarnWithContext(c.logger, "url resolution failed", "resolve_failed",
					logging.String("url", url),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the URL and yt-dlp version"),
				)
			}
			for _, d := range descriptors {
				if !yield(d) {
					return
				}
			}
		}
	}
}

func (c *Client) resolveOne(ctx context.Context, url string, limit int) ([]*workdir.Descriptor, error) {
	args := []string{"--dump-json", "--ignore-errors", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(limit))
	}
	args = append(args, c.cookieArgs()...)
	args = append(args, url)

	output, err := services.Run(ctx, c.runner, c.cfg.Binary, args...)
	// --ignore-errors exits non-zero when any playlist entry fails; keep the
	// entries that did resolve.
	descriptors := ParseDescriptors(output)
	if err != nil && len(descriptors) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "resolve", url, "", err)
	}
	return descriptors, nil
}

// ParseDescriptors decodes yt-dlp's one-JSON-object-per-line output. Lines
// that are not objects or that carry no id are dropped.
func ParseDescriptors(output []byte) []*workdir.Descriptor {
	var out []*workdir.Descriptor
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var d workdir.Descriptor
		if err := json.Unmarshal(line, &d); err != nil || strings.TrimSpace(d.ID) == "" {
			continue
		}
		out = append(out, &d)
	}
	return out
}

// Download fetches the video of d into folder as download.mp4 together with
// its info JSON and a PNG thumbnail.
func (c *Client) Download(ctx context.Context, d *workdir.Descriptor, folder string) error {
	if d == nil || strings.TrimSpace(d.WebpageURL) == "" {
		return services.Skip("download", "descriptor has no webpage url")
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("download: ensure folder: %w", err)
	}
	args := []string{
		"-f", FormatSelector(c.cfg.Resolution),
		"--merge-output-format", "mp4",
		"--write-info-json",
		"--write-thumbnail",
		"--convert-thumbnails", "png",
		"--no-playlist",
		"--no-warnings",
		"-o", workdir.Path(folder, "download.%(ext)s"),
	}
	args = append(args, c.cookieArgs()...)
	args = append(args, d.WebpageURL)
	if _, err := services.Run(ctx, c.runner, c.cfg.Binary, args...); err != nil {
		if Unavailable(err) {
			return services.Skip("download", "video unavailable: "+d.Label())
		}
		return services.Wrap(services.ErrExternalTool, "download", "yt-dlp", d.Label(), err)
	}
	if !workdir.Has(folder, workdir.FileVideo) {
		return services.Skip("download", "yt-dlp produced no media for "+d.Label())
	}
	if !workdir.Has(folder, workdir.FileInfo) {
		// Older yt-dlp builds skip the info file for some extractors.
		if err := workdir.WriteDescriptor(folder, d); err != nil {
			return err
		}
	}
	return nil
}

// unavailableMarkers are yt-dlp error fragments for videos that no retry
// will fetch.
var unavailableMarkers = []string{
	"Video unavailable",
	"Private video",
	"This video has been removed",
	"members-only",
	"This live event will begin",
	"Premieres in",
	"account associated with this video has been terminated",
}

// Unavailable reports whether err is yt-dlp refusing a video permanently.
func Unavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *Client) cookieArgs() []string {
	if path := strings.TrimSpace(c.cfg.CookiesFile); path != "" {
		return []string{"--cookies", path}
	}
	return nil
}

// FormatSelector builds the yt-dlp -f expression for a resolution cap.
func FormatSelector(resolution string) string {
	height := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(resolution)), "p")
	if _, err := strconv.Atoi(height); err != nil {
		return "bestvideo+bestaudio/best"
	}
	return fmt.Sprintf("bestvideo[ext=mp4][height<=%[1]s]+bestaudio[ext=m4a]/bestvideo[height<=%[1]s]+bestaudio/best[height<=%[1]s]/best", height)
}
