// Package stage defines the contract shared by every pipeline stage and the
// idempotent folder walk that drives a stage over a whole library.
//
// A stage declares its inputs (Ready), its completion marker (Done) and the
// work itself (Run). Execute only calls Run when inputs exist and the marker
// does not, then re-checks the marker, so running a stage twice never
// repeats work. Walk applies Execute to every folder under a root and keeps
// going past per-folder failures.
package stage
