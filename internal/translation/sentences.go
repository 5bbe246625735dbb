package translation

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"youdub/internal/workdir"
)

// Sentence boundaries: a terminator followed by anything that is not
// another terminator or a closing quote. Closing quotes that follow a
// terminator end the sentence themselves.
var sentenceRules = []*regexp.Regexp{
	regexp.MustCompile(`([。！？?])([^，。！？?”’》])`),
	regexp.MustCompile(`(\.{6})([^，。！？?”’》])`),
	regexp.MustCompile(`(…{2})([^，。！？?”’》])`),
	regexp.MustCompile(`([。！？?][”’])([^，。！？?”’》])`),
}

// SplitSentences breaks a translated paragraph into sentences at Chinese
// terminators. Commas and semicolons never split.
func SplitSentences(paragraph string) []string {
	for _, rule := range sentenceRules {
		paragraph = rule.ReplaceAllString(paragraph, "$1\n$2")
	}
	paragraph = strings.TrimRightFunc(paragraph, isSpace)
	parts := strings.Split(paragraph, "\n")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// SplitUtterances expands each translated utterance into sentence-level
// units. Children inherit the parent's text and speaker; their spans divide
// the parent span in proportion to each sentence's character share, rounded
// to milliseconds. The last child always ends at the parent's end.
func SplitUtterances(items []workdir.Utterance) []workdir.Utterance {
	out := make([]workdir.Utterance, 0, len(items))
	for _, item := range items {
		total := utf8.RuneCountInString(item.Translation)
		sentences := SplitSentences(item.Translation)
		if total == 0 || len(sentences) == 0 {
			item.Start, item.End = round3(item.Start), round3(item.End)
			out = append(out, item)
			continue
		}
		perChar := (item.End - item.Start) / float64(total)
		start := item.Start
		for i, sentence := range sentences {
			end := start + perChar*float64(utf8.RuneCountInString(sentence))
			if i == len(sentences)-1 {
				end = item.End
			}
			out = append(out, workdir.Utterance{
				Start:       round3(start),
				End:         round3(end),
				Text:        item.Text,
				Speaker:     item.Speaker,
				Translation: sentence,
			})
			start = end
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
