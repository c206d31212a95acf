package vocab

import (
	"fmt"
	"strings"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

// Vocabulary is an immutable bidirectional term ⇄ index mapping.
// Indices are dense, start at 0 and are only meaningful for the corpus
// snapshot the vocabulary was built from.
type Vocabulary struct {
	terms []string
	index map[string]int
}

// NewVocabulary creates a vocabulary whose index order is the order of terms.
// Empty and duplicate terms are rejected.
func NewVocabulary(terms []string) (*Vocabulary, error) {
	v := &Vocabulary{
		terms: make([]string, len(terms)),
		index: make(map[string]int, len(terms)),
	}
	for i, t := range terms {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: empty term at index %d", internalerr.ErrInvalidInput, i)
		}
		if prev, dup := v.index[t]; dup {
			return nil, fmt.Errorf("%w: term %q at %d and %d", internalerr.ErrDuplicate, t, prev, i)
		}
		v.terms[i] = t
		v.index[t] = i
	}
	return v, nil
}

// Size returns the number of terms.
func (v *Vocabulary) Size() int {
	if v == nil {
		return 0
	}
	return len(v.terms)
}

// Index returns the index of term.
func (v *Vocabulary) Index(term string) (int, bool) {
	if v == nil {
		return 0, false
	}
	i, ok := v.index[term]
	return i, ok
}

// Term returns the term at index i, or "" when i is out of range.
func (v *Vocabulary) Term(i int) string {
	if v == nil || i < 0 || i >= len(v.terms) {
		return ""
	}
	return v.terms[i]
}

// Terms returns a copy of all terms in index order.
func (v *Vocabulary) Terms() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}
