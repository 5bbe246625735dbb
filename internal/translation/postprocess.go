package translation

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`（[^）]*）`)
	digitComma    = regexp.MustCompile(`(\d),(\d)`)
	acronymAI     = regexp.MustCompile(`\bAI\b`)
	cosmetic      = strings.NewReplacer(
		"...", "，",
		"²", "的平方",
		"————", "：",
		"——", "：",
		"°", "度",
		"变压器", "Transformer",
	)
)

// Postprocess applies the fixed cosmetic rewrite to an accepted translation:
// full-width parentheticals are dropped, ellipses, dashes and degree signs are
// normalized, thousands separators between digits are removed, and a couple
// of habitual mistranslations are corrected.
func Postprocess(text string) string {
	text = parenthetical.ReplaceAllString(text, "")
	text = cosmetic.Replace(text)
	for {
		next := digitComma.ReplaceAllString(text, "$1$2")
		if next == text {
			break
		}
		text = next
	}
	return acronymAI.ReplaceAllString(text, "人工智能")
}
