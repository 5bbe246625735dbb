package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"youdub/internal/services"
	"youdub/internal/workdir"
)

func TestResolveIsolatesFailures(t *testing.T) {
	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		url := args[len(args)-1]
		switch url {
		case "https://bad":
			return nil, errors.New("boom")
		case "https://playlist":
			if !slices.Contains(args, "--playlist-end") || !slices.Contains(args, "2") {
				t.Fatalf("expected playlist cap in %v", args)
			}
			return []byte(`{"id":"a","title":"A","upload_date":"20240101"}
not json
{"id":"","title":"nameless"}
{"id":"b","title":"B","upload_date":"20240102"}
`), errors.New("one entry unavailable")
		default:
			return []byte(`{"id":"c","title":"C"}`), nil
		}
	}
	client := New(Config{}, runner, nil)
	got := client.Resolve(context.Background(), []string{"https://bad", "https://playlist", "https://single"}, 2)
	var ids []string
	for d := range got {
		ids = append(ids, d.ID)
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestResolveIsLazy(t *testing.T) {
	var calls []string
	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		url := args[len(args)-1]
		calls = append(calls, url)
		return []byte(`{"id":"` + strings.TrimPrefix(url, "https://") + `","title":"T"}`), nil
	}
	client := New(Config{}, runner, nil)
	for d := range client.Resolve(context.Background(), []string{"https://one", "https://two", "https://three"}, 1) {
		if d.ID != "one" {
			t.Fatalf("unexpected first descriptor %q", d.ID)
		}
		if len(calls) != 1 {
			t.Fatalf("expected only the first URL resolved before the first yield, got %v", calls)
		}
		break
	}
	if len(calls) != 1 {
		t.Fatalf("resolution continued after the consumer stopped: %v", calls)
	}
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	calls := 0
	runner := func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		calls++
		return []byte(`{"id":"x","title":"T"}`), nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := slices.Collect(New(Config{}, runner, nil).Resolve(ctx, []string{"https://one"}, 1))
	if len(got) != 0 || calls != 0 {
		t.Fatalf("expected nothing resolved after cancel, got %d descriptors and %d calls", len(got), calls)
	}
}

func TestDownloadWritesDescriptorWhenMissing(t *testing.T) {
	folder := t.TempDir()
	var gotArgs []string
	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, os.WriteFile(filepath.Join(folder, workdir.FileVideo), []byte("mp4"), 0o644)
	}
	client := New(Config{Resolution: "720p", CookiesFile: "/tmp/c.txt"}, runner, nil)
	d := &workdir.Descriptor{ID: "x", Title: "T", WebpageURL: "https://v"}
	if err := client.Download(context.Background(), d, folder); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !slices.Contains(gotArgs, "--cookies") || !strings.Contains(strings.Join(gotArgs, " "), "height<=720") {
		t.Fatalf("unexpected args %v", gotArgs)
	}
	if !workdir.Downloaded(folder) {
		t.Fatal("expected folder to count as downloaded")
	}
}

func TestDownloadWithoutOutputIsSkip(t *testing.T) {
	runner := func(context.Context, string, ...string) ([]byte, error) { return nil, nil }
	client := New(Config{}, runner, nil)
	err := client.Download(context.Background(), &workdir.Descriptor{ID: "x", Title: "T", WebpageURL: "https://v"}, t.TempDir())
	if !services.IsSkip(err) {
		t.Fatalf("expected skip, got %v", err)
	}
}

func TestDownloadErrorClassification(t *testing.T) {
	d := &workdir.Descriptor{ID: "x", Title: "T", WebpageURL: "https://v"}
	private := func(context.Context, string, ...string) ([]byte, error) {
		return nil, services.Wrap(services.ErrExternalTool, "yt-dlp", "exec", "ERROR: [youtube] x: Private video. Sign in", errors.New("exit 1"))
	}
	if err := New(Config{}, private, nil).Download(context.Background(), d, t.TempDir()); !services.IsSkip(err) {
		t.Fatalf("private video should skip, got %v", err)
	}
	network := func(context.Context, string, ...string) ([]byte, error) {
		return nil, services.Wrap(services.ErrExternalTool, "yt-dlp", "exec", "HTTP Error 503", errors.New("exit 1"))
	}
	err := New(Config{}, network, nil).Download(context.Background(), d, t.TempDir())
	if services.IsSkip(err) || !services.IsRetryable(err) {
		t.Fatalf("network failure should be retryable, got %v", err)
	}
}

func TestFormatSelector(t *testing.T) {
	if got := FormatSelector("best"); got != "bestvideo+bestaudio/best" {
		t.Fatalf("unexpected selector %q", got)
	}
	if got := FormatSelector("1080p"); !strings.Contains(got, "height<=1080") {
		t.Fatalf("unexpected selector %q", got)
	}
}
