// Package subtitles renders the dubbed translation as an SRT file.
//
// Sentence-level translations are cut again at Chinese punctuation into
// subtitle-sized fragments, timed by character share of their utterance,
// wrapped to a maximum line width and scaled by the video speed-up so cues
// line up with the accelerated render.
package subtitles
