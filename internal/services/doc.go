// Package services defines shared utilities consumed by the pipeline stages
// and the external collaborators they call.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, stage names, run IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the per-video
//     state machine tell skips, retryable failures, and configuration problems
//     apart.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
