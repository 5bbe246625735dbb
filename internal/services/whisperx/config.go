package whisperx

// Config captures runtime settings for WhisperX transcription.
type Config struct {
	// Binary is the whisperx executable.
	Binary string
	// Model is the Whisper model size (e.g., "large-v3").
	Model string
	// Device is "auto", "cuda" or "cpu".
	Device    string
	BatchSize int
	// Diarize labels speakers; it needs HFToken for the pyannote models.
	Diarize     bool
	MinSpeakers int
	MaxSpeakers int
	HFToken     string
}

// WhisperX configuration constants.
const (
	DefaultBinary     = "whisperx"
	DefaultModel      = "large-v3"
	DefaultBatchSize  = 32
	DefaultSpeaker    = "SPEAKER_00"
	OutputFormat      = "json"
	CPUComputeType    = "float32"
	CUDAComputeType   = "float16"
	SegmentResolution = "sentence"
)
