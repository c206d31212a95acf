package lexicon

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

// Lexicon is a general-purpose dictionary lemmatizer:
//   - Forms: inflected forms mapped to a lemma (ran, running → run)
//   - Suffix rules: fallback rewrites for tokens missing from the dictionary
//
// It ships no clinical vocabulary. Specialised terms and abbreviations pass
// through unchanged unless the caller adds them.
type Lexicon struct {
	// lemma -> all forms (including lemma itself)
	// Example: "run" -> ["run", "ran", "running", "runs"]
	forms map[string][]string

	// form -> lemma
	// Example: "running" -> "run"
	reverseIndex map[string]string

	rules []SuffixRule
}

// SuffixRule rewrites a trailing suffix when the remaining stem is long enough.
// Example: {Suffix: "ies", Replace: "y", MinStem: 2} turns "arteries" into "artery".
type SuffixRule struct {
	Suffix  string `yaml:"suffix"`
	Replace string `yaml:"replace"`
	MinStem int    `yaml:"min_stem"`
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		forms:        make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadFromYAML loads lemma mappings from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - lemma: run
//	    forms: [ran, running, runs]
//	  - lemma: be
//	    forms: [was, were, is, are]
//	suffixes:
//	  - {suffix: ies, replace: y, min_stem: 2}
//	  - {suffix: s, replace: "", min_stem: 3}
//
// Notes:
//   - Case-insensitive: all entries normalized to lowercase
//   - The lemma is included in its own form list
//   - Suffix rules are tried in file order, first match wins
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Lemmas []struct {
			Lemma string   `yaml:"lemma"`
			Forms []string `yaml:"forms"`
		} `yaml:"lemmas"`
		Suffixes []SuffixRule `yaml:"suffixes"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}

	lex := New()
	for _, entry := range config.Lemmas {
		if strings.TrimSpace(entry.Lemma) == "" {
			return nil, fmt.Errorf("%w: lexicon %s has an entry without lemma", internalerr.ErrInvalidConfig, path)
		}
		lex.AddForms(entry.Lemma, entry.Forms)
	}
	for _, r := range config.Suffixes {
		if err := lex.AddSuffixRule(r); err != nil {
			return nil, fmt.Errorf("lexicon %s: %w", path, err)
		}
	}

	return lex, nil
}

// AddForms adds a lemma and its inflected forms.
// If the lemma already exists, old reverse index entries are cleaned up first.
func (l *Lexicon) AddForms(lemma string, forms []string) {
	lemma = strings.ToLower(strings.TrimSpace(lemma))

	if oldForms, exists := l.forms[lemma]; exists {
		for _, old := range oldForms {
			delete(l.reverseIndex, old)
		}
	}

	// Ensure lemma is first in the list and deduplicate
	normalized := make([]string, 0, len(forms)+1)
	seen := map[string]bool{lemma: true}
	normalized = append(normalized, lemma)

	for _, f := range forms {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !seen[f] {
			normalized = append(normalized, f)
			seen[f] = true
		}
	}

	l.forms[lemma] = normalized
	for _, f := range normalized {
		l.reverseIndex[f] = lemma
	}
}

// AddSuffixRule appends a fallback suffix rewrite.
func (l *Lexicon) AddSuffixRule(r SuffixRule) error {
	r.Suffix = strings.ToLower(r.Suffix)
	r.Replace = strings.ToLower(r.Replace)
	if r.Suffix == "" {
		return fmt.Errorf("%w: suffix rule with empty suffix", internalerr.ErrInvalidConfig)
	}
	if r.MinStem < 1 {
		r.MinStem = 1
	}
	l.rules = append(l.rules, r)
	return nil
}

// Lemmatize returns the lemma of a token: a dictionary hit first, then the
// first matching suffix rule, otherwise the token itself. Tokens containing
// whitespace or nothing at all are rejected.
//
// Examples:
//   - Lemmatize("running") -> "run"
//   - Lemmatize("arteries") -> "artery" (with an ies→y rule)
//   - Lemmatize("cabg") -> "cabg"
func (l *Lexicon) Lemmatize(token string) (string, error) {
	token = strings.ToLower(token)
	if token == "" || strings.ContainsFunc(token, isSpace) {
		return "", fmt.Errorf("%w: cannot lemmatize %q", internalerr.ErrInvalidInput, token)
	}
	if lemma, ok := l.reverseIndex[token]; ok {
		return lemma, nil
	}
	for _, r := range l.rules {
		stem, ok := strings.CutSuffix(token, r.Suffix)
		if ok && len(stem) >= r.MinStem {
			return stem + r.Replace, nil
		}
	}
	return token, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Forms returns all known forms of a token's lemma (lemma first).
// If the token is unknown, returns a slice containing only the token itself.
func (l *Lexicon) Forms(token string) []string {
	token = strings.ToLower(token)
	if lemma, ok := l.reverseIndex[token]; ok {
		return l.forms[lemma]
	}
	return []string{token}
}

// Lemmas returns all lemmas in lexical order.
func (l *Lexicon) Lemmas() []string {
	out := make([]string, 0, len(l.forms))
	for lemma := range l.forms {
		out = append(out, lemma)
	}
	sort.Strings(out)
	return out
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, forms := range l.forms {
		total += len(forms)
	}
	return Stats{
		Lemmas:      len(l.forms),
		TotalForms:  total,
		SuffixRules: len(l.rules),
	}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Lemmas      int // Number of lemmas
	TotalForms  int // Total number of forms across all lemmas
	SuffixRules int
}
