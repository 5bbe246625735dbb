// Package textutil provides small text helpers shared across the pipeline:
// path-safe name sanitization, URL list normalization, and rune-aware length
// and truncation.
package textutil
