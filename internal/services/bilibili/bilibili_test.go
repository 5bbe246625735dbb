package bilibili

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"youdub/internal/services"
	"youdub/internal/workdir"
)

func noSleep(context.Context, time.Duration) error { return nil }

func prepareFolder(t *testing.T) (string, string) {
	t.Helper()
	folder := t.TempDir()
	if err := workdir.WriteSummary(folder, workdir.Summary{Title: "为什么天空是蓝的", Author: "Veritasium", Summary: "视频摘要：光的散射。", Tags: []string{"物理"}}); err != nil {
		t.Fatal(err)
	}
	if err := workdir.WriteDescriptor(folder, &workdir.Descriptor{ID: "x", Title: "Why is the sky blue", UploadDate: "20240101", WebpageURL: "https://youtu.be/x"}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(workdir.Path(folder, workdir.FileFinalVideo), []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	cookies := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(cookies, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	return folder, cookies
}

func TestTitleAndTags(t *testing.T) {
	s := workdir.Summary{Title: "视频标题：黑洞", Author: "Kurzgesagt", Tags: []string{"天文", "一个非常非常非常非常非常非常长的标签名字超过二十", "AI", "", "宇宙", "引力", "时空", "相对论", "量子"}}
	if got := Title(s); got != "【中配】黑洞 - Kurzgesagt" {
		t.Fatalf("unexpected title %q", got)
	}
	tags := Tags(s)
	if len(tags) != 12 {
		t.Fatalf("expected 12 tags, got %d: %v", len(tags), tags)
	}
	if tags[0] != "YouDub" || tags[1] != "Kurzgesagt" {
		t.Fatalf("unexpected frame %v", tags)
	}
	for _, tag := range tags {
		if n := len([]rune(tag)); n > 20 || n == 0 {
			t.Fatalf("tag %q has %d runes", tag, n)
		}
	}
	if strings.Count(strings.Join(tags, ","), "AI") != 1 {
		t.Fatalf("duplicate tags should collapse: %v", tags)
	}
}

func TestPublishRetriesAndWritesRecord(t *testing.T) {
	folder, cookies := prepareFolder(t)
	calls := 0
	var gotArgs []string
	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		calls++
		gotArgs = args
		if calls < 3 {
			return nil, services.Wrap(services.ErrExternalTool, "biliup", "exec", "network", errors.New("exit 1"))
		}
		return []byte("投稿成功 BV1xx411c7mD"), nil
	}
	pub := New(Config{CookieFile: cookies}, runner, nil, WithSleeper(noSleep))
	if err := pub.Publish(context.Background(), folder); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !slices.Contains(gotArgs, "201") || !slices.Contains(gotArgs, "https://youtu.be/x") {
		t.Fatalf("unexpected args %v", gotArgs)
	}
	record, err := workdir.ReadSubmission(folder)
	if err != nil || !record.Accepted() || record.Results[0].BVID != "BV1xx411c7mD" {
		t.Fatalf("unexpected record %+v %v", record, err)
	}

	calls = 0
	if err := pub.Publish(context.Background(), folder); err != nil || calls != 0 {
		t.Fatalf("already uploaded folder should short-circuit, calls=%d err=%v", calls, err)
	}
}

func TestPublishChecksCredentialsFirst(t *testing.T) {
	folder, _ := prepareFolder(t)
	calls := 0
	runner := func(context.Context, string, ...string) ([]byte, error) {
		calls++
		return nil, nil
	}
	err := New(Config{}, runner, nil, WithSleeper(noSleep)).Publish(context.Background(), folder)
	if !errors.Is(err, services.ErrConfiguration) || calls != 0 {
		t.Fatalf("expected configuration error before any attempt, got %v calls=%d", err, calls)
	}
}

func TestPublishExhaustion(t *testing.T) {
	folder, cookies := prepareFolder(t)
	calls := 0
	runner := func(context.Context, string, ...string) ([]byte, error) {
		calls++
		return nil, errors.New("boom")
	}
	err := New(Config{CookieFile: cookies}, runner, nil, WithSleeper(noSleep)).Publish(context.Background(), folder)
	if !errors.Is(err, services.ErrExternalTool) || calls != 5 {
		t.Fatalf("expected 5 attempts then external tool error, got %v calls=%d", err, calls)
	}
	if workdir.Uploaded(folder) {
		t.Fatal("failed upload must not be marked complete")
	}
}
