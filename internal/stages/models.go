package stages

import (
	"context"
	"os"

	"youdub/internal/models"
	"youdub/internal/services"
	"youdub/internal/stage"
	"youdub/internal/workdir"
)

// Separate splits the extracted audio into vocals and instruments with the
// shared separation model.
type Separate struct {
	model *models.Holder[Separator]
}

// NewSeparate constructs the separation stage.
func NewSeparate(model *models.Holder[Separator]) *Separate { return &Separate{model: model} }

func (s *Separate) Name() string { return "separate" }

func (s *Separate) Ready(folder string) bool { return workdir.AudioExtracted(folder) }

func (s *Separate) Done(folder string) bool { return workdir.Separated(folder) }

func (s *Separate) Run(ctx context.Context, folder string) error {
	return s.model.Do(ctx, func(sep Separator) error {
		return sep.Separate(ctx,
			workdir.Path(folder, workdir.FileAudio),
			workdir.Path(folder, workdir.FileVocals),
			workdir.Path(folder, workdir.FileInstruments),
		)
	})
}

// Release frees the separation model's device memory.
func (s *Separate) Release(ctx context.Context) error { return s.model.Release(ctx) }

// HealthCheck constructs the model handle.
func (s *Separate) HealthCheck(ctx context.Context) stage.Health {
	if _, err := s.model.GetOrCreate(ctx); err != nil {
		return stage.Unhealthy(s.Name(), err.Error())
	}
	return stage.Healthy(s.Name())
}

// Transcribe converts the vocals track into transcript.json.
type Transcribe struct {
	model *models.Holder[Transcriber]
}

// NewTranscribe constructs the transcription stage.
func NewTranscribe(model *models.Holder[Transcriber]) *Transcribe {
	return &Transcribe{model: model}
}

func (s *Transcribe) Name() string { return "transcribe" }

func (s *Transcribe) Ready(folder string) bool { return workdir.Separated(folder) }

func (s *Transcribe) Done(folder string) bool { return workdir.Transcribed(folder) }

func (s *Transcribe) Run(ctx context.Context, folder string) error {
	scratch := workdir.Path(folder, ".whisperx")
	defer os.RemoveAll(scratch)

	var utterances []workdir.Utterance
	err := s.model.Do(ctx, func(t Transcriber) error {
		var err error
		utterances, err = t.Transcribe(ctx, workdir.Path(folder, workdir.FileVocals), scratch)
		return err
	})
	if err != nil {
		return err
	}
	if len(utterances) == 0 {
		return services.Skip(s.Name(), "no speech detected")
	}
	return workdir.WriteTranscript(folder, utterances)
}

// Release frees the transcription model's device memory.
func (s *Transcribe) Release(ctx context.Context) error { return s.model.Release(ctx) }

// HealthCheck constructs the model handle.
func (s *Transcribe) HealthCheck(ctx context.Context) stage.Health {
	if _, err := s.model.GetOrCreate(ctx); err != nil {
		return stage.Unhealthy(s.Name(), err.Error())
	}
	return stage.Healthy(s.Name())
}
