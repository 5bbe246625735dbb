// Package ytdlp drives the yt-dlp CLI: it resolves video, playlist and
// channel URLs into descriptors and downloads a single video with its info
// JSON and thumbnail into a working folder.
package ytdlp
