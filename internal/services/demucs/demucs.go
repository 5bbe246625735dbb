// Package demucs separates an audio track into vocals and instruments with
// the demucs CLI.
package demucs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"youdub/internal/fileutil"
	"youdub/internal/services"
)

// Stems produced by the four-source demucs models.
var instrumentStems = []string{"drums.wav", "bass.wav", "other.wav"}

const vocalsStem = "vocals.wav"

// Config captures separation settings.
type Config struct {
	Binary string
	Model  string
	Device string
	Shifts int
}

// Mixer sums stem files into one track.
type Mixer interface {
	MixStems(ctx context.Context, inputs []string, out string) error
}

// Separator runs demucs.
type Separator struct {
	cfg    Config
	mixer  Mixer
	runner services.CommandRunner
}

// New constructs a Separator. runner may be nil.
func New(cfg Config, mixer Mixer, runner services.CommandRunner) *Separator {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "demucs"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "htdemucs_ft"
	}
	if cfg.Shifts <= 0 {
		cfg.Shifts = 1
	}
	return &Separator{cfg: cfg, mixer: mixer, runner: runner}
}

// Model returns the configured model name.
func (s *Separator) Model() string { return s.cfg.Model }

// Separate splits audio into vocalsOut and instrumentsOut. Intermediate
// stems live in a scratch directory next to vocalsOut and are removed
// afterwards.
func (s *Separator) Separate(ctx context.Context, audio, vocalsOut, instrumentsOut string) error {
	scratch := filepath.Join(filepath.Dir(vocalsOut), ".demucs")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("separate: scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	args := []string{
		"-n", s.cfg.Model,
		"-d", services.ResolveDevice(s.cfg.Device),
		"--shifts", strconv.Itoa(s.cfg.Shifts),
		"-o", scratch,
		audio,
	}
	if _, err := services.Run(ctx, s.runner, s.cfg.Binary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "separate", "demucs", "", err)
	}

	track := strings.TrimSuffix(filepath.Base(audio), filepath.Ext(audio))
	stemDir := filepath.Join(scratch, s.cfg.Model, track)
	vocals := filepath.Join(stemDir, vocalsStem)
	if !fileutil.Exists(vocals) {
		return services.Wrap(services.ErrExternalTool, "separate", "verify", "demucs produced no vocals stem", nil)
	}

	inputs := make([]string, 0, len(instrumentStems))
	for _, name := range instrumentStems {
		if path := filepath.Join(stemDir, name); fileutil.Exists(path) {
			inputs = append(inputs, path)
		}
	}
	if len(inputs) == 0 {
		return services.Wrap(services.ErrExternalTool, "separate", "verify", "demucs produced no instrument stems", nil)
	}
	if err := s.mixer.MixStems(ctx, inputs, instrumentsOut); err != nil {
		return err
	}
	return fileutil.CopyFile(vocals, vocalsOut)
}
