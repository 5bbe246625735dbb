// Package workflow drives one video through the ordered dubbing stages.
//
// ProcessVideo resolves the video's working folder, persists the descriptor
// and then runs every stage in sequence. Each stage no-ops when its output
// artifact already exists, so a retry simply re-runs the whole sequence and
// lets completed stages fall through. After each stage that holds a model,
// the pipeline asks it to release device memory before moving on.
//
// The result is one of three outcomes: succeeded, skipped (degenerate input
// that retrying cannot fix) or failed (retries exhausted or a non-retryable
// error).
package workflow
