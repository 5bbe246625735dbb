package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"youdub/internal/services"
)

type recorder struct {
	calls [][]string
	fail  func(args []string) error
	out   []byte
}

func (r *recorder) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, args)
	if r.fail != nil {
		if err := r.fail(args); err != nil {
			return nil, err
		}
	}
	return r.out, nil
}

func TestExtractAudioArgs(t *testing.T) {
	rec := &recorder{}
	enc := New("", rec.run, nil)
	if err := enc.ExtractAudio(context.Background(), "in.mp4", "audio.wav"); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(rec.calls[0], " ")
	for _, want := range []string{"-i in.mp4", "-vn", "pcm_s16le", "-ar 44100", "-ac 2", "audio.wav"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestSpeechGraph(t *testing.T) {
	graph := SpeechGraph([]Placement{{Path: "a.wav", Start: 1.25}, {Path: "b.wav", Start: -1}})
	if !strings.Contains(graph, "[1:a]aresample=44100,aformat=channel_layouts=stereo,adelay=1250:all=1[c1]") {
		t.Fatalf("unexpected first clip filter: %q", graph)
	}
	if !strings.Contains(graph, "adelay=0:all=1[c2]") {
		t.Fatalf("negative start should clamp to 0: %q", graph)
	}
	if !strings.Contains(graph, "[0:a][c1][c2]amix=inputs=3:duration=first") {
		t.Fatalf("unexpected mix: %q", graph)
	}
}

func TestMixSpeechRemovesScript(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "audio_combined.wav")
	var script string
	rec := &recorder{fail: func(args []string) error {
		idx := slices.Index(args, "-filter_complex_script")
		data, err := os.ReadFile(args[idx+1])
		script = string(data)
		return err
	}}
	enc := New("", rec.run, nil)
	if err := enc.MixSpeech(context.Background(), "bed.wav", []Placement{{Path: "0000.wav", Start: 0.5}}, out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, "adelay=500") {
		t.Fatalf("unexpected script %q", script)
	}
	if _, err := os.Stat(out + ".filter"); !os.IsNotExist(err) {
		t.Fatal("filter script should be removed")
	}
}

func TestMuxFallsBackToX264(t *testing.T) {
	rec := &recorder{
		out: []byte(" V....D h264_nvenc NVIDIA NVENC H.264 encoder"),
		fail: func(args []string) error {
			if slices.Contains(args, "h264_nvenc") {
				return services.Wrap(services.ErrExternalTool, "ffmpeg", "exec", "no capable devices found", errors.New("exit 1"))
			}
			return nil
		},
	}
	enc := New("", rec.run, nil)
	err := enc.Mux(context.Background(), MuxOptions{
		Video: "download.mp4", Audio: "audio_combined.wav", Subtitles: "/videos/a:b/subtitles.srt",
		Output: filepath.Join(t.TempDir(), "video.mp4"), SpeedUp: 1.05, Width: 1920, Height: 1080, Encoder: "auto",
	})
	if err != nil {
		t.Fatalf("Mux: %v", err)
	}
	if len(rec.calls) != 3 {
		t.Fatalf("expected probe + nvenc + x264 calls, got %d", len(rec.calls))
	}
	last := strings.Join(rec.calls[2], " ")
	if !strings.Contains(last, "libx264") || !strings.Contains(last, "setpts=PTS/1.05") || !strings.Contains(last, "atempo=1.05") {
		t.Fatalf("unexpected fallback args %q", last)
	}
	if !strings.Contains(last, `a\:b`) || !strings.Contains(last, "FontSize=15") {
		t.Fatalf("unexpected subtitle filter %q", last)
	}
}

func TestVideoCodec(t *testing.T) {
	cases := []struct {
		encoder, quality string
		nvenc            bool
		codec, first     string
	}{
		{"auto", "high", true, "h264_nvenc", "-preset"},
		{"auto", "high", false, "libx264", "-crf"},
		{"nvenc", "medium", false, "libx264", "-crf"},
		{"x264", "high", true, "libx264", "-crf"},
	}
	for _, tc := range cases {
		codec, params := VideoCodec(tc.encoder, tc.quality, tc.nvenc)
		if codec != tc.codec || params[0] != tc.first {
			t.Fatalf("%+v: got %s %v", tc, codec, params)
		}
	}
	if _, params := VideoCodec("x264", "high", false); !slices.Contains(params, "18") {
		t.Fatalf("high quality should use crf 18: %v", params)
	}
}

func TestConvertResolution(t *testing.T) {
	cases := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1280, 720, 1920, 1080},
		{1080, 1920, 1080, 1920},
		{1000, 777, 1388, 1080},
	}
	for _, tc := range cases {
		w, h, err := ConvertResolution(tc.w, tc.h, "1080p")
		if err != nil {
			t.Fatal(err)
		}
		if w != tc.wantW || h != tc.wantH {
			t.Fatalf("%dx%d: got %dx%d want %dx%d", tc.w, tc.h, w, h, tc.wantW, tc.wantH)
		}
		if w%2 != 0 || h%2 != 0 {
			t.Fatalf("dimensions must be even: %dx%d", w, h)
		}
	}
	if _, _, err := ConvertResolution(1920, 1080, "huge"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
