package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"youdub/internal/fileutil"
	"youdub/internal/workdir"
)

// minFragment is the shortest fragment, in characters, cut at a punctuation
// mark that is not the end of the text.
const minFragment = 5

var breakMarks = map[rune]bool{
	'，': true, '；': true, '：': true, '。': true,
	'？': true, '！': true, '\n': true, '”': true,
}

// Cue is one subtitle entry. Times are in seconds of the source video.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// Fragments cuts each translated utterance at break marks. A cut needs at
// least minFragment characters since the previous cut and is postponed
// while the next character is also a break mark. Utterances without a
// translation produce no cue.
func Fragments(utterances []workdir.Utterance) []Cue {
	var cues []Cue
	for _, u := range utterances {
		text := []rune(u.Translation)
		if len(text) == 0 {
			continue
		}
		perChar := (u.End - u.Start) / float64(len(text))
		start := u.Start
		from := 0
		last := len(text) - 1
		for i, r := range text {
			if i != last {
				if !breakMarks[r] || i-from < minFragment || breakMarks[text[i+1]] {
					continue
				}
			}
			fragment := text[from : i+1]
			end := start + perChar*float64(len(fragment))
			if i == last {
				end = u.End
			}
			cues = append(cues, Cue{Start: round3(start), End: round3(end), Text: string(fragment)})
			start = end
			from = i + 1
		}
	}
	return cues
}

// Wrap breaks text into the fewest lines of at most maxChars characters,
// spreading characters evenly across lines.
func Wrap(text string, maxChars int) string {
	runes := []rune(strings.TrimSpace(text))
	if maxChars <= 0 || len(runes) <= maxChars {
		return string(runes)
	}
	lines := (len(runes) + maxChars - 1) / maxChars
	width := (len(runes) + lines - 1) / lines
	parts := make([]string, 0, lines)
	for i := 0; i < len(runes); i += width {
		end := min(i+width, len(runes))
		parts = append(parts, string(runes[i:end]))
	}
	return strings.Join(parts, "\n")
}

// Render formats cues as SRT. Times are divided by speedUp.
func Render(cues []Cue, speedUp float64, maxChars int) string {
	if speedUp <= 0 {
		speedUp = 1
	}
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(cue.Start/speedUp),
			FormatTimestamp(cue.End/speedUp),
			Wrap(cue.Text, maxChars),
		)
	}
	return b.String()
}

// Write renders the translation of utterances into path.
func Write(path string, utterances []workdir.Utterance, speedUp float64, maxChars int) (int, error) {
	cues := Fragments(utterances)
	if err := fileutil.WriteFileAtomic(path, []byte(Render(cues, speedUp, maxChars)), 0o644); err != nil {
		return 0, fmt.Errorf("write subtitles: %w", err)
	}
	return len(cues), nil
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	s := total / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", s/3600, (s%3600)/60, s%60, ms)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	clock, millis, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid srt timestamp %q", value)
	}
	fields := strings.Split(clock, ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("invalid srt timestamp %q", value)
	}
	var total float64
	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return 0, fmt.Errorf("invalid srt timestamp %q: %w", value, err)
		}
		total = total*60 + float64(n)
	}
	ms, err := strconv.Atoi(millis)
	if err != nil {
		return 0, fmt.Errorf("invalid srt timestamp %q: %w", value, err)
	}
	return (total*1000 + float64(ms)) / 1000, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
