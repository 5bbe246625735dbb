// Package logging assembles structured slog loggers and formatting helpers used
// across the dubbing pipeline.
//
// It owns the console and JSON handlers, centralizes level and output plumbing
// (including rotating log files), and exposes context-aware helpers so stage
// code automatically tags log lines with run IDs, video IDs, stages, and
// correlation IDs. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
package logging
