// Package ffprobe provides a typed wrapper around ffprobe JSON output, used
// to measure synthesized speech clips and read source video dimensions.
package ffprobe
