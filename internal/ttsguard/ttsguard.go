// Package ttsguard sanitizes text before it reaches the voice synthesis
// engine: bounding quotes are stripped, runaway repetition is collapsed and
// the text is cut to the engine's input budget.
package ttsguard

import (
	"regexp"
	"strings"
)

// Guard holds the sanitization limits.
type Guard struct {
	MaxChars   int
	Lookback   int
	MaxRepeats int
}

// Default returns the limits suited to XTTS.
func Default() Guard {
	return Guard{MaxChars: 80, Lookback: 30, MaxRepeats: 2}
}

// Sanitize applies StripQuotes, DedupRepeats and Truncate in that order.
func (g Guard) Sanitize(text string) string {
	text = StripQuotes(text)
	text = DedupRepeats(text, g.MaxRepeats)
	return Truncate(text, g.MaxChars, g.Lookback)
}

var openers, closers = []rune(`"'“‘「『《（(【[«`), []rune(`"'”’」』》）)】]»`)

// StripQuotes removes bounding quote or bracket pairs, repeatedly, so
// stacked wrappers such as 《“...”》 are all removed. A pair is only
// stripped when its closing character does not also occur inside.
func StripQuotes(text string) string {
	runes := []rune(strings.TrimSpace(text))
	for len(runes) >= 2 {
		i := indexRune(openers, runes[0])
		if i < 0 || runes[len(runes)-1] != closers[i] {
			break
		}
		inner := runes[1 : len(runes)-1]
		if indexRune(inner, closers[i]) >= 0 {
			break
		}
		runes = []rune(strings.TrimSpace(string(inner)))
	}
	return string(runes)
}

func indexRune(rs []rune, r rune) int {
	for i, candidate := range rs {
		if candidate == r {
			return i
		}
	}
	return -1
}

var fragmentPattern = regexp.MustCompile(`[^。！？!?；;，,…]+[。！？!?；;，,…]*`)

// DedupRepeats keeps at most maxRepeats consecutive copies of the same
// punctuation-delimited fragment. A non-positive maxRepeats disables it.
func DedupRepeats(text string, maxRepeats int) string {
	if maxRepeats <= 0 {
		return text
	}
	fragments := fragmentPattern.FindAllString(text, -1)
	if len(fragments) <= maxRepeats {
		return text
	}
	var b strings.Builder
	prev := ""
	run := 0
	for _, fragment := range fragments {
		key := strings.TrimSpace(strings.TrimRight(fragment, "。！？!?；;，,…"))
		if key != "" && key == prev {
			run++
		} else {
			prev = key
			run = 1
		}
		if run > maxRepeats {
			continue
		}
		b.WriteString(fragment)
	}
	return b.String()
}

const sentenceEnds = "。！？!?；;…"

// Truncate limits text to maxChars characters. When it must cut, it prefers
// to end right after the last sentence-ending punctuation within the final
// lookback characters of the budget, and hard-cuts at maxChars otherwise.
func Truncate(text string, maxChars, lookback int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	floor := maxChars - lookback
	if floor < 0 {
		floor = 0
	}
	for i := maxChars - 1; i >= floor; i-- {
		if strings.ContainsRune(sentenceEnds, runes[i]) {
			return string(runes[:i+1])
		}
	}
	return string(runes[:maxChars])
}
