package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"youdub/internal/config"
	"youdub/internal/notifications"
)

type captured struct {
	title, body, tags, priority string
}

func newServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), seen...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyVideoFailed(context.Background(), "Example", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyFormatsRunAndFailureEvents(t *testing.T) {
	srv, seen := newServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.VideoFailures = true
	cfg.Notifications.RunSummary = true
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyRunStarted(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyVideoFailed(ctx, "A Talk", errors.New("mux failed")); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyRunCompleted(ctx, 3, 1, 2, 90*time.Second); err != nil {
		t.Fatal(err)
	}

	got := seen()
	if len(got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(got))
	}
	if got[0].title != "YouDub - Run Started" || !strings.Contains(got[0].body, "2 source URL") {
		t.Fatalf("unexpected start %+v", got[0])
	}
	if got[1].priority != "high" || !strings.Contains(got[1].body, "A Talk") || !strings.Contains(got[1].body, "mux failed") {
		t.Fatalf("unexpected failure %+v", got[1])
	}
	if got[2].body != "Success: 3 / Fail: 1 / Skipped: 2 in 1m30s" || got[2].tags != "youdub,run,completed" {
		t.Fatalf("unexpected summary %+v", got[2])
	}
}

func TestNtfyRespectsEventToggles(t *testing.T) {
	srv, seen := newServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.VideoFailures = false
	cfg.Notifications.RunSummary = false
	svc := notifications.NewService(&cfg)

	_ = svc.NotifyVideoFailed(context.Background(), "x", nil)
	_ = svc.NotifyRunCompleted(context.Background(), 1, 0, 0, time.Second)
	if n := len(seen()); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestNtfyReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
