// Package translation turns a transcript into dubbing-ready target-language
// text.
//
// Two LLM-backed phases run per video. Summarize derives a {title, summary,
// tags} record from the descriptor and a bounded transcript excerpt.
// TranslateUtterances then translates each utterance with a sliding window
// of recent exchanges as context. Every model reply passes through the
// quality Gate, which strips wrappers, rejects over-long, meta-commentary
// and looping output, and applies a fixed cosmetic rewrite. Accepted text is
// run through the terminology enforcer.
//
// SplitUtterances re-segments translated utterances into sentence-level
// units with proportionally interpolated timings.
package translation
