package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"youdub/internal/services"
	"youdub/internal/workdir"
)

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg           Config
	commandRunner services.CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultBinary
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner services.CommandRunner) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Diarizing reports whether speaker labels will be requested.
func (s *Service) Diarizing() bool {
	return s.cfg.Diarize && strings.TrimSpace(s.cfg.HFToken) != ""
}

// Check verifies the whisperx binary is installed.
func (s *Service) Check(context.Context) error {
	if s.commandRunner != nil {
		return nil
	}
	if _, err := exec.LookPath(s.cfg.Binary); err != nil {
		return services.Wrap(services.ErrConfiguration, "transcribe", "check", fmt.Sprintf("%s not found on PATH", s.cfg.Binary), err)
	}
	return nil
}

// Transcribe runs WhisperX on source and returns its utterances in order.
// outputDir receives the raw WhisperX JSON.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string) ([]workdir.Utterance, error) {
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "whisperx", "source path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if _, err := services.Run(ctx, s.commandRunner, s.cfg.Binary, s.buildArgs(source, outputDir)...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	segments, err := LoadSegments(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "load output", "", err)
	}
	return ToUtterances(segments), nil
}

// buildArgs constructs the whisperx command arguments.
func (s *Service) buildArgs(source, outputDir string) []string {
	device := services.ResolveDevice(s.cfg.Device)
	computeType := CPUComputeType
	if device == "cuda" {
		computeType = CUDAComputeType
	}
	args := []string{
		source,
		"--model", s.cfg.Model,
		"--device", device,
		"--compute_type", computeType,
		"--batch_size", strconv.Itoa(s.cfg.BatchSize),
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
	}
	if s.Diarizing() {
		args = append(args, "--diarize", "--hf_token", s.cfg.HFToken)
		if s.cfg.MinSpeakers > 0 {
			args = append(args, "--min_speakers", strconv.Itoa(s.cfg.MinSpeakers))
		}
		if s.cfg.MaxSpeakers > 0 {
			args = append(args, "--max_speakers", strconv.Itoa(s.cfg.MaxSpeakers))
		}
	}
	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

// ToUtterances converts segments into transcript utterances. Blank segments
// are dropped and unlabelled ones get the default speaker.
func ToUtterances(segments []Segment) []workdir.Utterance {
	out := make([]workdir.Utterance, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			speaker = DefaultSpeaker
		}
		end := seg.End
		if end < seg.Start {
			end = seg.Start
		}
		out = append(out, workdir.Utterance{
			Start:   seg.Start,
			End:     end,
			Text:    text,
			Speaker: speaker,
		})
	}
	return out
}
