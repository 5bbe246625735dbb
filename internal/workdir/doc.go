// Package workdir owns the per-video working folder: where it lives, which
// artifact files it accumulates, and the typed records persisted inside it.
//
// Artifact presence is the completion contract for every pipeline stage, so
// the named predicates here (Downloaded, Transcribed, Uploaded, ...) are the
// single place that decides whether a stage is done for a folder.
package workdir
