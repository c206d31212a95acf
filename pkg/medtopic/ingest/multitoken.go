package ingest

import (
	"log"
	"strings"
)

// PhraseMerger collapses configured multi-word clinical phrases into a single
// canonical term, so that "lithotomy position" is counted as one term rather
// than two unrelated words.
type PhraseMerger struct {
	dict    map[string]PhraseEntry // phrase → entry
	maxLen  int
	entries []PhraseEntry // as configured, for renormalization
}

// PhraseEntry maps a canonical phrase and its variants to one term.
type PhraseEntry struct {
	Canonical string
	Variants  []string
}

// NewPhraseMerger creates a merger with the given phrase dictionary. Keys are
// lower-cased with whitespace collapsed; a pipeline renormalizes them the
// way it normalizes document text.
func NewPhraseMerger(entries []PhraseEntry) *PhraseMerger {
	return buildPhraseMerger(entries, func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	})
}

func buildPhraseMerger(entries []PhraseEntry, norm func(string) string) *PhraseMerger {
	m := &PhraseMerger{
		dict:    make(map[string]PhraseEntry),
		maxLen:  1,
		entries: make([]PhraseEntry, 0, len(entries)),
	}
	for _, raw := range entries {
		m.entries = append(m.entries, PhraseEntry{
			Canonical: raw.Canonical,
			Variants:  append([]string(nil), raw.Variants...),
		})

		e := PhraseEntry{Canonical: norm(raw.Canonical)}
		if e.Canonical == "" {
			if strings.TrimSpace(raw.Canonical) != "" {
				log.Printf("Warning: phrase %q is empty after normalization, skipping", raw.Canonical)
			}
			continue
		}
		m.add(e.Canonical, e)
		for _, v := range raw.Variants {
			variant := norm(v)
			if variant == "" {
				log.Printf("Warning: variant %q of phrase %q is empty after normalization, skipping", v, raw.Canonical)
				continue
			}
			e.Variants = append(e.Variants, variant)
			m.add(variant, e)
		}
	}
	return m
}

func (p *PhraseMerger) add(key string, e PhraseEntry) {
	p.dict[key] = e
	if l := phraseLen(key); l > p.maxLen {
		p.maxLen = l
	}
}

// normalized rebuilds the dictionary from the configured entries with norm
// applied to every canonical form and variant.
func (p *PhraseMerger) normalized(norm func(string) string) *PhraseMerger {
	if p == nil {
		return nil
	}
	return buildPhraseMerger(p.entries, norm)
}

// Len returns the number of dictionary keys (canonical forms plus variants).
func (p *PhraseMerger) Len() int {
	if p == nil {
		return 0
	}
	return len(p.dict)
}

// Merge applies greedy longest-match over tokens. Unmatched tokens pass
// through unchanged. A nil merger returns tokens as is.
func (p *PhraseMerger) Merge(tokens []string) []string {
	if p == nil || len(p.dict) == 0 {
		return tokens
	}

	result := make([]string, 0, len(tokens))
	i := 0

	for i < len(tokens) {
		matched := ""
		matchLen := 1

		// Try matching from longest phrase to shortest (bigram)
		maxPhrase := p.maxLen
		if remaining := len(tokens) - i; maxPhrase > remaining {
			maxPhrase = remaining
		}
		for n := maxPhrase; n >= 2; n-- {
			if entry, ok := p.dict[strings.Join(tokens[i:i+n], " ")]; ok {
				matched = entry.Canonical
				matchLen = n
				break
			}
		}

		if matched != "" {
			result = append(result, matched)
			i += matchLen
			continue
		}

		// single-token variant, e.g. an abbreviation
		if entry, ok := p.dict[tokens[i]]; ok {
			result = append(result, entry.Canonical)
		} else {
			result = append(result, tokens[i])
		}
		i++
	}

	return result
}

func phraseLen(phrase string) int {
	if phrase == "" {
		return 1
	}
	return len(strings.Fields(phrase))
}
