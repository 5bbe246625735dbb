package whisperx

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestTranscribeBuildsArgsAndParsesOutput(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "audio_vocals.wav")
	svc := NewService(Config{
		Device:      "cpu",
		Diarize:     true,
		HFToken:     "hf_x",
		MinSpeakers: 1,
		MaxSpeakers: 3,
	})
	var gotName string
	var gotArgs []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		payload := `{"segments":[
			{"start":0.5,"end":2.0,"text":" Hello there. ","speaker":"SPEAKER_01"},
			{"start":2.0,"end":2.5,"text":"   "},
			{"start":3.0,"end":4.0,"text":"Bye."}
		]}`
		return nil, os.WriteFile(filepath.Join(dir, "out", "audio_vocals.json"), []byte(payload), 0o644)
	})

	utterances, err := svc.Transcribe(context.Background(), source, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if gotName != "whisperx" {
		t.Fatalf("unexpected binary %q", gotName)
	}
	for _, want := range []string{"--diarize", "--min_speakers", "--max_speakers", "--compute_type"} {
		if !slices.Contains(gotArgs, want) {
			t.Fatalf("expected %s in args %v", want, gotArgs)
		}
	}
	if len(utterances) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(utterances))
	}
	if utterances[0].Text != "Hello there." || utterances[0].Speaker != "SPEAKER_01" {
		t.Fatalf("unexpected first utterance %+v", utterances[0])
	}
	if utterances[1].Speaker != DefaultSpeaker {
		t.Fatalf("expected default speaker, got %q", utterances[1].Speaker)
	}
}

func TestDiarizationNeedsToken(t *testing.T) {
	svc := NewService(Config{Device: "cpu", Diarize: true})
	if svc.Diarizing() {
		t.Fatal("diarization without a token should be disabled")
	}
	args := svc.buildArgs("a.wav", "out")
	if slices.Contains(args, "--diarize") {
		t.Fatalf("unexpected --diarize in %v", args)
	}
}
