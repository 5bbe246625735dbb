// Package ffmpeg builds and runs the ffmpeg invocations of the dubbing
// pipeline: audio extraction, stem and speech mixing, tempo fitting of
// synthesized clips, and the final mux with subtitle burn-in.
//
// Every call goes through services.CommandRunner so tests can capture the
// generated arguments without an ffmpeg install.
package ffmpeg
