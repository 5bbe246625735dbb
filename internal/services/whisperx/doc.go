// Package whisperx wraps the WhisperX command line to transcribe the vocals
// track into time-stamped, optionally speaker-labelled utterances.
//
// The CLI runs once per video and writes a JSON document whose segments are
// converted into workdir.Utterance values. Diarization is only requested
// when a Hugging Face token is configured.
package whisperx
