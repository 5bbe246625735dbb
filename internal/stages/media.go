package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"youdub/internal/fileutil"
	"youdub/internal/logging"
	"youdub/internal/media/ffmpeg"
	"youdub/internal/services"
	"youdub/internal/services/bilibili"
	"youdub/internal/stage"
	"youdub/internal/subtitles"
	"youdub/internal/workdir"
)

// MuxOptions are the synthesis knobs for the final video.
type MuxOptions struct {
	SpeedUp      float64
	FPS          int
	Resolution   string
	Encoder      string
	Quality      string
	Subtitles    bool
	MaxLineChars int
}

// Mux renders video.mp4 from the source video, the dubbed audio and
// optionally burned-in subtitles.
type Mux struct {
	encoder Encoder
	prober  Prober
	opts    MuxOptions
	logger  *slog.Logger
}

// NewMux constructs the mux stage.
func NewMux(encoder Encoder, prober Prober, opts MuxOptions, logger *slog.Logger) *Mux {
	if opts.SpeedUp <= 0 {
		opts.SpeedUp = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mux{encoder: encoder, prober: prober, opts: opts, logger: logger}
}

func (s *Mux) Name() string { return "mux" }

func (s *Mux) Ready(folder string) bool {
	return workdir.Downloaded(folder) && workdir.Spoken(folder) && workdir.Translated(folder)
}

func (s *Mux) Done(folder string) bool { return workdir.Muxed(folder) }

func (s *Mux) Run(ctx context.Context, folder string) error {
	video := workdir.Path(folder, workdir.FileVideo)
	info, err := s.prober.Inspect(ctx, video)
	if err != nil {
		return err
	}
	width, height, ok := info.VideoSize()
	if !ok {
		return services.Wrap(services.ErrValidation, s.Name(), "inspect", "source has no video stream", nil)
	}
	width, height, err = ffmpeg.ConvertResolution(width, height, s.opts.Resolution)
	if err != nil {
		return err
	}

	opts := ffmpeg.MuxOptions{
		Video:   video,
		Audio:   workdir.Path(folder, workdir.FileCombinedAudio),
		SpeedUp: s.opts.SpeedUp,
		FPS:     s.opts.FPS,
		Width:   width,
		Height:  height,
		Encoder: s.opts.Encoder,
		Quality: s.opts.Quality,
	}
	if s.opts.Subtitles {
		sentences, err := workdir.ReadTranslation(folder)
		if err != nil {
			return err
		}
		path := workdir.Path(folder, workdir.FileSubtitles)
		cues, err := subtitles.Write(path, sentences, s.opts.SpeedUp, s.opts.MaxLineChars)
		if err != nil {
			return err
		}
		s.logger.Debug("subtitles written", logging.Int("cues", cues))
		opts.Subtitles = path
	}

	return renderTo(workdir.Path(folder, workdir.FileFinalVideo), func(tmp string) error {
		opts.Output = tmp
		return s.encoder.Mux(ctx, opts)
	})
}

// coverOffset is where the fallback cover frame is taken from.
const coverOffset = 1.0

// Metadata writes video.txt and the video.png cover used by the upload.
type Metadata struct {
	encoder Encoder
}

// NewMetadata constructs the metadata stage.
func NewMetadata(encoder Encoder) *Metadata { return &Metadata{encoder: encoder} }

func (s *Metadata) Name() string { return "info" }

func (s *Metadata) Ready(folder string) bool {
	return workdir.Summarized(folder) && workdir.Has(folder, workdir.FileVideo)
}

func (s *Metadata) Done(folder string) bool { return workdir.MetadataGenerated(folder) }

func (s *Metadata) Run(ctx context.Context, folder string) error {
	summary, err := workdir.ReadSummary(folder)
	if err != nil {
		return err
	}
	descriptor, err := workdir.ReadDescriptor(folder)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", bilibili.Title(summary))
	fmt.Fprintf(&b, "%s\n\n", bilibili.Description(descriptor, summary))
	b.WriteString(strings.Join(bilibili.Tags(summary), ", "))
	b.WriteByte('\n')
	if err := fileutil.WriteFileAtomic(workdir.Path(folder, workdir.FileMetadata), []byte(b.String()), 0o644); err != nil {
		return err
	}

	cover := workdir.Path(folder, workdir.FileCover)
	if workdir.Has(folder, workdir.FileThumbnail) {
		return fileutil.CopyFile(workdir.Path(folder, workdir.FileThumbnail), cover)
	}
	return renderTo(cover, func(tmp string) error {
		return s.encoder.Frame(ctx, workdir.Path(folder, workdir.FileVideo), tmp, coverOffset)
	})
}

// Upload publishes a finished folder.
type Upload struct {
	publisher Publisher
}

// NewUpload constructs the upload stage.
func NewUpload(p Publisher) *Upload { return &Upload{publisher: p} }

func (s *Upload) Name() string { return "upload" }

func (s *Upload) Ready(folder string) bool {
	return workdir.Muxed(folder) && workdir.MetadataGenerated(folder)
}

func (s *Upload) Done(folder string) bool { return workdir.Uploaded(folder) }

func (s *Upload) Run(ctx context.Context, folder string) error {
	return s.publisher.Publish(ctx, folder)
}

// HealthCheck verifies the publishing credentials.
func (s *Upload) HealthCheck(context.Context) stage.Health {
	if err := s.publisher.CheckCredentials(); err != nil {
		return stage.Unhealthy(s.Name(), err.Error())
	}
	return stage.Healthy(s.Name())
}
