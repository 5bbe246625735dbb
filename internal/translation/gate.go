package translation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultForbidden lists meta-commentary that never belongs in a dubbed line.
var DefaultForbidden = []string{"这句", "\n", "简体中文", "中文", "translate", "Translate", "translation", "Translation"}

// Gate validates and repairs raw model output for one utterance.
type Gate struct {
	// ShortOriginal is the length at or below which ShortLimit applies
	// instead of the ratio.
	ShortOriginal int
	ShortLimit    int
	MaxRatio      int
	Forbidden     []string
	// RepeatThreshold is the fragment count that marks a repetition loop.
	RepeatThreshold int
}

// DefaultGate returns the gate used by the translation pipeline.
func DefaultGate() Gate {
	return Gate{
		ShortOriginal:   10,
		ShortLimit:      30,
		MaxRatio:        3,
		Forbidden:       DefaultForbidden,
		RepeatThreshold: 3,
	}
}

// Validate runs the default gate. On acceptance the second value is the
// repaired translation, otherwise it is a corrective instruction for the
// next attempt.
func Validate(original, candidate string) (bool, string) {
	return DefaultGate().Check(original, candidate)
}

// Check applies the gate rules in order; the first rejection wins.
func (g Gate) Check(original, candidate string) (bool, string) {
	text := StripWrappers(candidate)

	origLen := utf8.RuneCountInString(original)
	textLen := utf8.RuneCountInString(text)
	if origLen <= g.ShortOriginal {
		if textLen > g.ShortLimit {
			return false, "Translation is too long. Just give me the short translation directly, no explanation."
		}
	} else if textLen > origLen*g.MaxRatio {
		return false, fmt.Sprintf("Translation is too long (%d chars vs original %d chars). Just translate directly.", textLen, origLen)
	}

	text = strings.TrimSpace(text)
	for _, word := range g.Forbidden {
		if strings.Contains(text, word) {
			return false, fmt.Sprintf("Don't include `%s` in the translation. Only translate the following sentence and give me the result.", strings.ReplaceAll(word, "\n", `\n`))
		}
	}

	if isRepetitive(text, g.RepeatThreshold) {
		return false, "The translation repeats itself. Translate again and output a single natural sentence."
	}
	if text == "" {
		return false, "The translation is empty. Output only the translated sentence."
	}
	return true, Postprocess(text)
}

var (
	fencePairs = [][2]string{{"```", "```"}}
	quotePairs = [][2]string{
		{`"`, `"`},
		{"“", "”"},
		{"「", "」"},
		{"«", "»"},
		{"‘", "’"},
	}
	labelPrefixes = []string{"翻译：", "翻译:", "译文：", "译文:", "Translation:", "translation:"}
)

// StripWrappers removes code fences, a leading translation label, and
// bounding quote pairs from a model reply. When the reply embeds the
// translation as 翻译：“...” inside other text the quoted payload is
// extracted.
func StripWrappers(candidate string) string {
	text := strings.TrimSpace(candidate)
	if inner, ok := unwrap(text, fencePairs); ok {
		text = strings.TrimSpace(strings.TrimPrefix(inner, "json"))
	}
	for _, prefix := range labelPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
			break
		}
	}
	for {
		inner, ok := unwrap(text, quotePairs)
		if !ok {
			break
		}
		text = strings.TrimSpace(inner)
	}
	if strings.Contains(text, "翻译") {
		for _, pair := range [][2]string{{"：“", "”"}, {`："`, `"`}, {`:"`, `"`}} {
			if idx := strings.LastIndex(text, pair[0]); idx >= 0 {
				rest := text[idx+len(pair[0]):]
				if end := strings.Index(rest, pair[1]); end >= 0 {
					return strings.TrimSpace(rest[:end])
				}
			}
		}
	}
	return text
}

func unwrap(text string, pairs [][2]string) (string, bool) {
	for _, pair := range pairs {
		left, right := pair[0], pair[1]
		if len(text) >= len(left)+len(right) && strings.HasPrefix(text, left) && strings.HasSuffix(text, right) {
			return text[len(left) : len(text)-len(right)], true
		}
	}
	return "", false
}

var fragmentSplit = regexp.MustCompile(`[。，！？；\n]`)

// isRepetitive reports whether any punctuation-delimited fragment occurs at
// least threshold times.
func isRepetitive(text string, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	counts := map[string]int{}
	for _, fragment := range fragmentSplit.Split(text, -1) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		counts[fragment]++
		if counts[fragment] >= threshold {
			return true
		}
	}
	return false
}
