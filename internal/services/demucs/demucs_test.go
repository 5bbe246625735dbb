package demucs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"youdub/internal/services"
)

type fakeMixer struct {
	inputs []string
	out    string
}

func (m *fakeMixer) MixStems(_ context.Context, inputs []string, out string) error {
	m.inputs = append([]string(nil), inputs...)
	m.out = out
	return os.WriteFile(out, []byte("mix"), 0o644)
}

func TestSeparateMixesInstrumentStems(t *testing.T) {
	folder := t.TempDir()
	audio := filepath.Join(folder, "audio.wav")
	var gotArgs []string
	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		out := args[slices.Index(args, "-o")+1]
		stemDir := filepath.Join(out, "htdemucs_ft", "audio")
		if err := os.MkdirAll(stemDir, 0o755); err != nil {
			return nil, err
		}
		for _, name := range []string{"vocals.wav", "drums.wav", "other.wav"} {
			if err := os.WriteFile(filepath.Join(stemDir, name), []byte(name), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	mixer := &fakeMixer{}
	sep := New(Config{Device: "cpu", Shifts: 5}, mixer, runner)
	vocals := filepath.Join(folder, "audio_vocals.wav")
	instruments := filepath.Join(folder, "audio_instruments.wav")

	if err := sep.Separate(context.Background(), audio, vocals, instruments); err != nil {
		t.Fatalf("Separate: %v", err)
	}
	if !slices.Contains(gotArgs, "--shifts") || !slices.Contains(gotArgs, "cpu") {
		t.Fatalf("unexpected args %v", gotArgs)
	}
	if len(mixer.inputs) != 2 || mixer.out != instruments {
		t.Fatalf("unexpected mix %v -> %s", mixer.inputs, mixer.out)
	}
	data, err := os.ReadFile(vocals)
	if err != nil || string(data) != "vocals.wav" {
		t.Fatalf("vocals not copied: %q %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(folder, ".demucs")); !os.IsNotExist(err) {
		t.Fatal("scratch directory should be removed")
	}
}

func TestSeparateWithoutStemsFails(t *testing.T) {
	runner := func(context.Context, string, ...string) ([]byte, error) { return nil, nil }
	sep := New(Config{Device: "cpu"}, &fakeMixer{}, runner)
	folder := t.TempDir()
	err := sep.Separate(context.Background(), filepath.Join(folder, "audio.wav"),
		filepath.Join(folder, "audio_vocals.wav"), filepath.Join(folder, "audio_instruments.wav"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
