// Package preflight provides readiness checks for the external services
// and filesystem paths a dubbing run depends on.
//
// `youdub doctor` prints every check, and `youdub run` refuses to start
// when a required check fails, so a missing tool or key is reported before
// hours of separation and transcription are spent on a doomed run.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
