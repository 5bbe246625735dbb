// Package terminology enforces canonical target-language renderings of
// domain terms in translated text.
package terminology

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"youdub/internal/fileutil"
)

//go:embed defaults.json
var defaultsJSON []byte

// Table maps a source term to its canonical rendering.
type Table map[string]string

// Defaults returns a copy of the built-in table.
func Defaults() Table {
	var table Table
	if err := json.Unmarshal(defaultsJSON, &table); err != nil {
		panic(fmt.Sprintf("terminology: embedded defaults are invalid: %v", err))
	}
	return table
}

type rule struct {
	term    string
	target  string
	pattern *regexp.Regexp
}

// Enforcer rewrites every occurrence of every table term, case-insensitively
// and on word boundaries, longest term first.
type Enforcer struct {
	mu    sync.RWMutex
	terms Table
	rules []rule
}

// New builds an Enforcer for table.
func New(table Table) *Enforcer {
	e := &Enforcer{terms: Table{}}
	for k, v := range table {
		if strings.TrimSpace(k) == "" {
			continue
		}
		e.terms[k] = v
	}
	e.compile()
	return e
}

// Load merges the built-in defaults with each override file in order. Later
// files win on key collisions. Missing override files are ignored.
func Load(overrides ...string) (*Enforcer, error) {
	table := Defaults()
	for _, path := range overrides {
		if strings.TrimSpace(path) == "" {
			continue
		}
		extra, err := readTable(path)
		if err != nil {
			if fileutil.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for k, v := range extra {
			table[k] = v
		}
	}
	return New(table), nil
}

func readTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse terminology file %s: %w", path, err)
	}
	return table, nil
}

func (e *Enforcer) compile() {
	rules := make([]rule, 0, len(e.terms))
	for term, target := range e.terms {
		rules = append(rules, rule{term: term, target: target, pattern: termPattern(term)})
	}
	sort.Slice(rules, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(rules[i].term), utf8.RuneCountInString(rules[j].term)
		if li != lj {
			return li > lj
		}
		return rules[i].term < rules[j].term
	})
	e.rules = rules
}

// termPattern anchors the term on word boundaries wherever the term itself
// starts or ends with a word character. CJK neighbours count as boundaries so
// embedded English terms in translated text still match.
func termPattern(term string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)")
	first, _ := utf8.DecodeRuneInString(term)
	last, _ := utf8.DecodeLastRuneInString(term)
	if isWordByte(first) {
		b.WriteString(`\b`)
	}
	b.WriteString(regexp.QuoteMeta(term))
	if isWordByte(last) {
		b.WriteString(`\b`)
	}
	return regexp.MustCompile(b.String())
}

func isWordByte(r rune) bool {
	return r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Apply returns text with every term replaced by its canonical rendering.
func (e *Enforcer) Apply(text string) string {
	if e == nil || text == "" {
		return text
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.rules {
		if !r.pattern.MatchString(text) {
			continue
		}
		text = r.pattern.ReplaceAllLiteralString(text, r.target)
	}
	return text
}

// Terms returns a copy of the active table.
func (e *Enforcer) Terms() Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(Table, len(e.terms))
	for k, v := range e.terms {
		out[k] = v
	}
	return out
}

// Len reports the number of active terms.
func (e *Enforcer) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.terms)
}

// Add inserts or replaces a term.
func (e *Enforcer) Add(term, target string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return fmt.Errorf("terminology: term must not be empty")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.terms[term] = strings.TrimSpace(target)
	e.compile()
	return nil
}

var candidatePattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*\b`)

// Extract returns capitalized phrases in text that are at least minLength
// characters long and absent from the table, sorted and de-duplicated.
func (e *Enforcer) Extract(text string, minLength int) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := map[string]struct{}{}
	var out []string
	for _, candidate := range candidatePattern.FindAllString(text, -1) {
		if utf8.RuneCountInString(candidate) < minLength {
			continue
		}
		if _, known := e.terms[candidate]; known {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	sort.Strings(out)
	return out
}

// Save writes the active table to path as a JSON object.
func (e *Enforcer) Save(path string) error {
	return fileutil.WriteJSON(path, e.Terms())
}
