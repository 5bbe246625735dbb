package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"youdub/internal/fileutil"
	"youdub/internal/logging"
	"youdub/internal/media/ffmpeg"
	"youdub/internal/models"
	"youdub/internal/services"
	"youdub/internal/stage"
	"youdub/internal/textutil"
	"youdub/internal/ttsguard"
	"youdub/internal/workdir"
)

const (
	// referenceSeconds caps the length of a speaker's reference voice clip.
	referenceSeconds = 12.0
	// DefaultMaxTempo bounds how much a synthesized sentence is sped up to
	// fit its slot.
	DefaultMaxTempo = 1.5
)

// Speak synthesizes every translated sentence in the original speaker's
// voice and mixes the result over the instruments track.
type Speak struct {
	model    *models.Holder[Synthesizer]
	encoder  Encoder
	prober   Prober
	guard    ttsguard.Guard
	language string
	maxTempo float64
	logger   *slog.Logger
}

// SpeakOptions configures NewSpeak.
type SpeakOptions struct {
	Guard    ttsguard.Guard
	Language string
	MaxTempo float64
	Logger   *slog.Logger
}

// NewSpeak constructs the speech synthesis stage.
func NewSpeak(model *models.Holder[Synthesizer], encoder Encoder, prober Prober, opts SpeakOptions) *Speak {
	if opts.MaxTempo < 1 {
		opts.MaxTempo = DefaultMaxTempo
	}
	if opts.Guard.MaxChars <= 0 {
		opts.Guard = ttsguard.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Speak{
		model:    model,
		encoder:  encoder,
		prober:   prober,
		guard:    opts.Guard,
		language: opts.Language,
		maxTempo: opts.MaxTempo,
		logger:   opts.Logger,
	}
}

func (s *Speak) Name() string { return "speak" }

func (s *Speak) Ready(folder string) bool {
	return workdir.Translated(folder) && workdir.Separated(folder)
}

func (s *Speak) Done(folder string) bool { return workdir.Spoken(folder) }

func (s *Speak) Run(ctx context.Context, folder string) error {
	sentences, err := workdir.ReadTranslation(folder)
	if err != nil {
		return err
	}
	dir := workdir.Path(folder, workdir.DirSpeech)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create speech dir: %w", err)
	}

	voices, err := s.referenceVoices(ctx, folder, sentences)
	if err != nil {
		return err
	}

	sampler := logging.NewProgressSampler(10)
	var (
		placements []ffmpeg.Placement
		cursor     float64
	)
	for i, u := range sentences {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := s.guard.Sanitize(u.Translation)
		if text == "" {
			continue
		}
		key := clipKey(text, voices[u.Speaker])
		clip := workdir.Path(dir, fmt.Sprintf("%04d_%s.wav", i, key))
		if !fileutil.Exists(clip) {
			if err := s.synthesize(ctx, text, voices[u.Speaker], clip); err != nil {
				return err
			}
		}
		duration, err := s.prober.Duration(ctx, clip)
		if err != nil {
			return err
		}

		slot := slotFor(sentences, i)
		if slot > 0 && duration > slot {
			tempo := math.Min(duration/slot, s.maxTempo)
			fitted := workdir.Path(dir, fmt.Sprintf("%04d_%s_fit.wav", i, clipKey(key, strconv.FormatFloat(tempo, 'f', 4, 64))))
			if !fileutil.Exists(fitted) {
				if err := renderTo(fitted, func(tmp string) error {
					return s.encoder.ChangeTempo(ctx, clip, tmp, tempo)
				}); err != nil {
					return err
				}
			}
			clip = fitted
			duration /= tempo
		}

		start := math.Max(u.Start, cursor)
		placements = append(placements, ffmpeg.Placement{Path: clip, Start: start})
		cursor = start + duration

		if sampler.ShouldLog(i+1, len(sentences)) {
			s.logger.Info("speech progress",
				logging.Int("done", i+1),
				logging.Int("total", len(sentences)),
			)
		}
	}
	if len(placements) == 0 {
		return services.Wrap(services.ErrValidation, s.Name(), "synthesize", "no sentence produced speech", nil)
	}

	return renderTo(workdir.Path(folder, workdir.FileCombinedAudio), func(tmp string) error {
		return s.encoder.MixSpeech(ctx, workdir.Path(folder, workdir.FileInstruments), placements, tmp)
	})
}

// clipKey names a cached clip by what it was rendered from, so edited
// translations or re-picked voices never reuse a stale clip.
func clipKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}

func (s *Speak) synthesize(ctx context.Context, text, voice, out string) error {
	return s.model.Do(ctx, func(synth Synthesizer) error {
		wav, err := synth.Synthesize(ctx, text, voice, s.language)
		if err != nil {
			return err
		}
		return fileutil.WriteFileAtomic(out, wav, 0o644)
	})
}

// referenceVoices clips each speaker's longest utterance out of the vocals
// track to serve as the cloning reference.
func (s *Speak) referenceVoices(ctx context.Context, folder string, sentences []workdir.Utterance) (map[string]string, error) {
	longest := map[string]workdir.Utterance{}
	for _, u := range sentences {
		if strings.TrimSpace(u.Translation) == "" {
			continue
		}
		best, ok := longest[u.Speaker]
		if !ok || u.End-u.Start > best.End-best.Start {
			longest[u.Speaker] = u
		}
	}
	voices := make(map[string]string, len(longest))
	vocals := workdir.Path(folder, workdir.FileVocals)
	for speaker, u := range longest {
		name := textutil.SanitizeToken(speaker)
		if name == "" {
			name = "speaker"
		}
		out := workdir.Path(workdir.Path(folder, workdir.DirSpeech), name+".wav")
		voices[speaker] = out
		if fileutil.Exists(out) {
			continue
		}
		length := math.Min(u.End-u.Start, referenceSeconds)
		if err := renderTo(out, func(tmp string) error {
			return s.encoder.Clip(ctx, vocals, tmp, u.Start, length)
		}); err != nil {
			return nil, err
		}
	}
	return voices, nil
}

// slotFor is the time available to sentence i: up to the next sentence's
// start, or its own end for the last one.
func slotFor(sentences []workdir.Utterance, i int) float64 {
	u := sentences[i]
	if i+1 < len(sentences) && sentences[i+1].Start > u.Start {
		return sentences[i+1].Start - u.Start
	}
	return u.End - u.Start
}

// Release frees the synthesis model's memory.
func (s *Speak) Release(ctx context.Context) error { return s.model.Release(ctx) }

// HealthCheck constructs the synthesis handle.
func (s *Speak) HealthCheck(ctx context.Context) stage.Health {
	if _, err := s.model.GetOrCreate(ctx); err != nil {
		return stage.Unhealthy(s.Name(), err.Error())
	}
	return stage.Healthy(s.Name())
}
