package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"youdub/internal/logging"
	"youdub/internal/services"
)

// Encoder runs ffmpeg.
type Encoder struct {
	binary string
	runner services.CommandRunner
	logger *slog.Logger

	probeOnce sync.Once
	hasNVENC  bool
}

// New constructs an Encoder. An empty binary means "ffmpeg"; runner may be nil.
func New(binary string, runner services.CommandRunner, logger *slog.Logger) *Encoder {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Encoder{binary: binary, runner: runner, logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

func (e *Encoder) run(ctx context.Context, op string, args ...string) error {
	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	if _, err := services.Run(ctx, e.runner, e.binary, full...); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", op, "", err)
	}
	return nil
}

// ExtractAudio writes the audio track of video to out as 16-bit PCM, 44.1 kHz
// stereo.
func (e *Encoder) ExtractAudio(ctx context.Context, video, out string) error {
	return e.run(ctx, "extract audio",
		"-i", video,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-ac", "2",
		out,
	)
}

// MixStems sums inputs into out without loudness normalization.
func (e *Encoder) MixStems(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "mix stems", "no inputs", nil)
	}
	args := make([]string, 0, len(inputs)*2+6)
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", fmt.Sprintf("amix=inputs=%d:duration=longest:normalize=0", len(inputs)),
		"-acodec", "pcm_s16le",
		out,
	)
	return e.run(ctx, "mix stems", args...)
}

// Clip cuts duration seconds starting at start from in into a mono 24 kHz
// wav, the format the voice cloning server expects for reference audio.
func (e *Encoder) Clip(ctx context.Context, in, out string, start, duration float64) error {
	return e.run(ctx, "clip",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", in,
		"-ac", "1",
		"-ar", "24000",
		out,
	)
}

// ChangeTempo speeds in up by tempo without changing pitch.
func (e *Encoder) ChangeTempo(ctx context.Context, in, out string, tempo float64) error {
	return e.run(ctx, "tempo",
		"-i", in,
		"-filter:a", "atempo="+strconv.FormatFloat(tempo, 'f', 4, 64),
		out,
	)
}

// Frame grabs a single frame of video at offset seconds into out.
func (e *Encoder) Frame(ctx context.Context, video, out string, at float64) error {
	return e.run(ctx, "frame",
		"-ss", formatSeconds(at),
		"-i", video,
		"-frames:v", "1",
		out,
	)
}

// Placement positions one synthesized clip on the dub timeline.
type Placement struct {
	Path  string
	Start float64
}

// MixSpeech lays clips over the bed track (the instruments) at their start
// offsets and writes the result to out. The filter graph goes through a
// script file because long videos produce thousands of inputs.
func (e *Encoder) MixSpeech(ctx context.Context, bed string, clips []Placement, out string) error {
	args := []string{"-i", bed}
	for _, clip := range clips {
		args = append(args, "-i", clip.Path)
	}

	script := SpeechGraph(clips)
	scriptPath := out + ".filter"
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return fmt.Errorf("write filter script: %w", err)
	}
	defer os.Remove(scriptPath)

	args = append(args,
		"-filter_complex_script", scriptPath,
		"-map", "[dub]",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		out,
	)
	return e.run(ctx, "mix speech", args...)
}

// SpeechGraph renders the filter graph for MixSpeech: input 0 is the bed,
// inputs 1..n are the clips.
func SpeechGraph(clips []Placement) string {
	var b strings.Builder
	labels := make([]string, 0, len(clips)+1)
	labels = append(labels, "[0:a]")
	for i, clip := range clips {
		delay := int(clip.Start * 1000)
		if delay < 0 {
			delay = 0
		}
		label := fmt.Sprintf("[c%d]", i+1)
		fmt.Fprintf(&b, "[%d:a]aresample=44100,aformat=channel_layouts=stereo,adelay=%d:all=1%s;\n", i+1, delay, label)
		labels = append(labels, label)
	}
	fmt.Fprintf(&b, "%samix=inputs=%d:duration=first:dropout_transition=0:normalize=0[dub]\n", strings.Join(labels, ""), len(labels))
	return b.String()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
