package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"youdub/internal/logging"
	"youdub/internal/services"
)

// MuxOptions describes the final render.
type MuxOptions struct {
	Video     string
	Audio     string
	Subtitles string // empty disables burn-in
	Output    string
	SpeedUp   float64
	FPS       int
	Width     int
	Height    int
	// Encoder is "auto", "nvenc" or "x264"; Quality is "high", "medium" or "low".
	Encoder string
	Quality string
}

// Mux renders the dubbed video. An NVENC failure is retried once with
// libx264.
func (e *Encoder) Mux(ctx context.Context, opts MuxOptions) error {
	if opts.SpeedUp <= 0 {
		opts.SpeedUp = 1
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	codec, params := VideoCodec(opts.Encoder, opts.Quality, e.NVENCAvailable(ctx))
	e.logger.Info("rendering video",
		logging.String("codec", codec),
		logging.String("resolution", fmt.Sprintf("%dx%d", opts.Width, opts.Height)),
		logging.Int("fps", opts.FPS),
	)
	err := e.run(ctx, "mux", MuxArgs(opts, codec, params)...)
	if err == nil || codec != "h264_nvenc" || ctx.Err() != nil {
		return err
	}
	logging.WarnWithContext(e.logger, "nvenc encode failed; falling back to libx264", "encoder_fallback",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the NVIDIA driver or set synthesis.encoder = \"x264\""),
	)
	_ = os.Remove(opts.Output)
	return e.run(ctx, "mux", MuxArgs(opts, "libx264", []string{"-crf", "20", "-preset", "medium"})...)
}

// MuxArgs builds the ffmpeg arguments (after the global flags) for a render.
func MuxArgs(opts MuxOptions, codec string, params []string) []string {
	speed := strconv.FormatFloat(opts.SpeedUp, 'f', -1, 64)
	videoChain := "setpts=PTS/" + speed
	if opts.Subtitles != "" {
		videoChain += "," + SubtitleFilter(opts.Subtitles, opts.Width)
	}
	graph := fmt.Sprintf("[0:v]%s[v];[1:a]atempo=%s[a]", videoChain, speed)

	args := []string{
		"-i", opts.Video,
		"-i", opts.Audio,
		"-filter_complex", graph,
		"-map", "[v]",
		"-map", "[a]",
		"-r", strconv.Itoa(opts.FPS),
	}
	if opts.Width > 0 && opts.Height > 0 {
		args = append(args, "-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height))
	}
	args = append(args, "-c:v", codec)
	args = append(args, params...)
	args = append(args, "-c:a", "aac", "-b:a", "192k", "-ar", "48000")
	return append(args, opts.Output)
}

// SubtitleFilter renders the burn-in filter with a font size scaled to the
// output width.
func SubtitleFilter(path string, width int) string {
	fontSize := width / 128
	if fontSize <= 0 {
		fontSize = 15
	}
	outline := (fontSize + 4) / 8
	return fmt.Sprintf("subtitles=filename='%s':force_style='FontName=Arial,FontSize=%d,PrimaryColour=&HFFFFFF,OutlineColour=&H000000,Outline=%d,WrapStyle=2'",
		escapeFilterPath(path), fontSize, outline)
}

func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `/`, `'`, `'\''`, `:`, `\:`)
	return replacer.Replace(path)
}

// VideoCodec picks the codec and its parameters. "auto" prefers NVENC when
// ffmpeg reports it.
func VideoCodec(encoder, quality string, hasNVENC bool) (string, []string) {
	nvenc := []string{"-preset", "p4", "-rc", "vbr", "-cq", "20", "-b:v", "0", "-maxrate", "50M", "-bufsize", "100M"}
	switch strings.ToLower(strings.TrimSpace(encoder)) {
	case "nvenc":
		if hasNVENC {
			return "h264_nvenc", nvenc
		}
		return "libx264", x264Params(quality)
	case "x264":
		return "libx264", x264Params(quality)
	default:
		if hasNVENC {
			return "h264_nvenc", nvenc
		}
		return "libx264", []string{"-crf", "20", "-preset", "slow"}
	}
}

func x264Params(quality string) []string {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "high":
		return []string{"-crf", "18", "-preset", "slow", "-tune", "film"}
	case "medium":
		return []string{"-crf", "21", "-preset", "medium"}
	default:
		return []string{"-crf", "25", "-preset", "fast"}
	}
}

// NVENCAvailable reports whether ffmpeg lists the h264_nvenc encoder. The
// probe runs once per Encoder.
func (e *Encoder) NVENCAvailable(ctx context.Context) bool {
	e.probeOnce.Do(func() {
		out, err := services.Run(ctx, e.runner, e.binary, "-hide_banner", "-encoders")
		if err != nil && !errors.Is(err, services.ErrExternalTool) {
			return
		}
		e.hasNVENC = strings.Contains(string(out), "h264_nvenc")
	})
	return e.hasNVENC
}

// ConvertResolution scales a source of the given dimensions so its short
// side matches resolution ("1080p"), keeping the aspect ratio and rounding
// both sides down to even numbers.
func ConvertResolution(width, height int, resolution string) (int, int, error) {
	if width <= 0 || height <= 0 {
		return 0, 0, services.Wrap(services.ErrValidation, "ffmpeg", "resolution", "source has no video dimensions", nil)
	}
	target, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(resolution)), "p"))
	if err != nil || target <= 0 {
		return 0, 0, services.Wrap(services.ErrConfiguration, "ffmpeg", "resolution", fmt.Sprintf("invalid resolution %q", resolution), err)
	}
	var w, h int
	if width < height {
		w = target
		h = target * height / width
	} else {
		h = target
		w = target * width / height
	}
	return w - w%2, h - h%2, nil
}
