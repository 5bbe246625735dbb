package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"
)

type entry struct {
	tts     string   // voice synthesis language code
	display string   // name used in prompts and summaries
	aliases []string // names and codes accepted from configuration
}

var languages = []entry{
	{"zh-cn", "简体中文", []string{"zh", "zh-cn", "zh-hans", "chinese", "simplified chinese", "中文"}},
	{"zh-cn", "繁体中文", []string{"zh-tw", "zh-hant", "traditional chinese", "繁體中文"}},
	{"en", "English", []string{"en", "eng", "english", "英语"}},
	{"ja", "日本語", []string{"ja", "jpn", "japanese", "日语"}},
	{"ko", "한국어", []string{"ko", "kor", "korean", "韩语"}},
	{"de", "Deutsch", []string{"de", "deu", "ger", "german", "德语"}},
	{"fr", "Français", []string{"fr", "fra", "fre", "french", "法语"}},
	{"es", "Español", []string{"es", "spa", "spanish", "西班牙语"}},
	{"ru", "русский", []string{"ru", "rus", "russian", "俄语"}},
	{"pt", "Português", []string{"pt", "por", "portuguese"}},
	{"it", "Italiano", []string{"it", "ita", "italian"}},
}

var (
	folder  = cases.Fold()
	byAlias map[string]*entry
)

func init() {
	byAlias = make(map[string]*entry, len(languages)*6)
	for i := range languages {
		e := &languages[i]
		byAlias[folder.String(e.display)] = e
		for _, alias := range e.aliases {
			byAlias[folder.String(alias)] = e
		}
	}
}

func lookup(name string) *entry {
	key := folder.String(strings.TrimSpace(name))
	if key == "" {
		return nil
	}
	if e, ok := byAlias[key]; ok {
		return e
	}
	// Fall back to BCP 47 parsing so region variants such as "en-GB" resolve.
	if tag, err := xlanguage.Parse(key); err == nil {
		base, _ := tag.Base()
		if e, ok := byAlias[base.String()]; ok {
			return e
		}
	}
	return nil
}

// Known reports whether name is a recognized target language.
func Known(name string) bool {
	return lookup(name) != nil
}

// DisplayName returns the canonical name for a target language, which is
// what prompts and summary records carry. Unrecognized input is returned
// trimmed.
func DisplayName(name string) string {
	if e := lookup(name); e != nil {
		return e.display
	}
	return strings.TrimSpace(name)
}

// TTSCode maps a target language to the voice synthesis language code.
// Unrecognized input falls back to "zh-cn".
func TTSCode(name string) string {
	if e := lookup(name); e != nil {
		return e.tts
	}
	return "zh-cn"
}

// Names lists the canonical display names of all supported languages.
func Names() []string {
	out := make([]string, 0, len(languages))
	for _, e := range languages {
		out = append(out, e.display)
	}
	return out
}
