package stages

import (
	"context"

	"youdub/internal/workdir"
)

// Download fetches the source video described by the folder's info JSON.
type Download struct {
	downloader Downloader
}

// NewDownload constructs the download stage.
func NewDownload(d Downloader) *Download { return &Download{downloader: d} }

func (s *Download) Name() string { return "download" }

// Ready requires the descriptor written when the folder was resolved.
func (s *Download) Ready(folder string) bool { return workdir.Has(folder, workdir.FileInfo) }

func (s *Download) Done(folder string) bool { return workdir.Downloaded(folder) }

func (s *Download) Run(ctx context.Context, folder string) error {
	d, err := workdir.ReadDescriptor(folder)
	if err != nil {
		return err
	}
	return s.downloader.Download(ctx, d, folder)
}

// ExtractAudio pulls the audio track out of the downloaded video.
type ExtractAudio struct {
	encoder Encoder
}

// NewExtractAudio constructs the extract-audio stage.
func NewExtractAudio(e Encoder) *ExtractAudio { return &ExtractAudio{encoder: e} }

func (s *ExtractAudio) Name() string { return "extract-audio" }

func (s *ExtractAudio) Ready(folder string) bool { return workdir.Downloaded(folder) }

func (s *ExtractAudio) Done(folder string) bool { return workdir.AudioExtracted(folder) }

func (s *ExtractAudio) Run(ctx context.Context, folder string) error {
	return renderTo(workdir.Path(folder, workdir.FileAudio), func(tmp string) error {
		return s.encoder.ExtractAudio(ctx, workdir.Path(folder, workdir.FileVideo), tmp)
	})
}
