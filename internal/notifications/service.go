package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"youdub/internal/config"
	"youdub/internal/textutil"
)

const userAgent = "YouDub-Go/0.1.0"

// Service defines the notification surface used by the fleet.
type Service interface {
	NotifyRunStarted(ctx context.Context, urls int) error
	NotifyRunCompleted(ctx context.Context, succeeded, failed, skipped int, duration time.Duration) error
	NotifyVideoFailed(ctx context.Context, title string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		videoFailures: cfg.Notifications.VideoFailures,
		runSummary:    cfg.Notifications.RunSummary,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	videoFailures bool
	runSummary    bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, urls int) error {
	if !n.runSummary {
		return nil
	}
	return n.send(ctx, payload{
		title:   "YouDub - Run Started",
		message: fmt.Sprintf("Dubbing run started for %d source URL(s)", urls),
		tags:    []string{"youdub", "run", "started"},
	})
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, succeeded, failed, skipped int, duration time.Duration) error {
	if !n.runSummary {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	title := "YouDub - Run Complete"
	priority := ""
	if failed > 0 {
		title = "YouDub - Run Complete (with failures)"
		priority = "high"
	}
	return n.send(ctx, payload{
		title:    title,
		message:  fmt.Sprintf("Success: %d / Fail: %d / Skipped: %d in %s", succeeded, failed, skipped, duration),
		tags:     []string{"youdub", "run", "completed"},
		priority: priority,
	})
}

func (n *ntfyService) NotifyVideoFailed(ctx context.Context, title string, err error) error {
	if !n.videoFailures {
		return nil
	}
	var b strings.Builder
	b.WriteString("❌ Failed: ")
	b.WriteString(strings.TrimSpace(title))
	if err != nil {
		b.WriteString("\n")
		b.WriteString(textutil.Truncate(strings.TrimSpace(err.Error()), 400))
	}
	return n.send(ctx, payload{
		title:    "YouDub - Video Failed",
		message:  b.String(),
		tags:     []string{"youdub", "video", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "YouDub - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"youdub", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, int) error                            { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, int, time.Duration) error { return nil }
func (noopService) NotifyVideoFailed(context.Context, string, error) error                 { return nil }
func (noopService) TestNotification(context.Context) error                                 { return nil }
