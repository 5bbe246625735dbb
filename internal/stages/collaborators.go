package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"youdub/internal/media/ffmpeg"
	"youdub/internal/media/ffprobe"
	"youdub/internal/workdir"
)

// Downloader fetches one video into a folder.
type Downloader interface {
	Download(ctx context.Context, d *workdir.Descriptor, folder string) error
}

// Separator splits an audio track into vocals and instruments.
type Separator interface {
	Separate(ctx context.Context, audio, vocalsOut, instrumentsOut string) error
}

// Transcriber turns speech into time-stamped utterances.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir string) ([]workdir.Utterance, error)
}

// Synthesizer renders text in a reference voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, speakerWav, language string) ([]byte, error)
}

// Translator summarizes and translates a transcript.
type Translator interface {
	Summarize(ctx context.Context, d *workdir.Descriptor, transcript []workdir.Utterance) (workdir.Summary, error)
	TranslateUtterances(ctx context.Context, summary workdir.Summary, transcript []workdir.Utterance, done []string, checkpoint func([]string) error) ([]string, error)
}

// Encoder is the subset of the ffmpeg collaborator the stages use.
type Encoder interface {
	ExtractAudio(ctx context.Context, video, out string) error
	Clip(ctx context.Context, in, out string, start, duration float64) error
	ChangeTempo(ctx context.Context, in, out string, tempo float64) error
	MixSpeech(ctx context.Context, bed string, clips []ffmpeg.Placement, out string) error
	Mux(ctx context.Context, opts ffmpeg.MuxOptions) error
	Frame(ctx context.Context, video, out string, at float64) error
}

// Prober inspects media files.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
	Duration(ctx context.Context, path string) (float64, error)
}

// Publisher uploads a finished folder.
type Publisher interface {
	CheckCredentials() error
	Publish(ctx context.Context, folder string) error
}

// partialPath returns the in-progress sibling of path, keeping the extension
// so ffmpeg still infers the container.
func partialPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".partial" + ext
}

// renderTo runs render against a partial file and renames it to final on
// success.
func renderTo(final string, render func(tmp string) error) error {
	tmp := partialPath(final)
	if err := render(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("finalize %s: %w", filepath.Base(final), err)
	}
	return nil
}
