package ingest

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

// Mode selects how text is segmented.
type Mode int

const (
	ModeWord Mode = iota
	ModeNGram
	ModeSentence
)

func (m Mode) String() string {
	switch m {
	case ModeWord:
		return "word"
	case ModeNGram:
		return "ngram"
	case ModeSentence:
		return "sentence"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a config value ("word", "ngram", "sentence") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "word", "words":
		return ModeWord, nil
	case "ngram", "ngrams", "n-gram":
		return ModeNGram, nil
	case "sentence", "sentences":
		return ModeSentence, nil
	}
	return ModeWord, fmt.Errorf("%w: unknown segmentation mode %q", internalerr.ErrInvalidConfig, s)
}

// Segmenter splits raw text into words, n-grams or sentences.
// It holds no mutable state and is safe for concurrent use.
type Segmenter struct {
	foldAccents    bool
	sentenceCasing bool // keep original case in sentence mode
}

// NewSegmenter creates a segmenter with default settings:
// no accent folding, lower-cased sentences.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// SetFoldAccents enables diacritic removal before cleaning.
// Example: "naïve" → "naive", "Sjögren" → "sjogren"
func (s *Segmenter) SetFoldAccents(fold bool) {
	s.foldAccents = fold
}

// SetKeepSentenceCase disables lower-casing of sentences.
func (s *Segmenter) SetKeepSentenceCase(keep bool) {
	s.sentenceCasing = keep
}

// Segment splits text according to mode. n is only used by ModeNGram.
func (s *Segmenter) Segment(text string, mode Mode, n int) ([]string, error) {
	switch mode {
	case ModeWord:
		return slices.Collect(s.Words(text)), nil
	case ModeNGram:
		return NGrams(slices.Collect(s.Words(text)), n)
	case ModeSentence:
		return Sentences(text, !s.sentenceCasing), nil
	}
	return nil, fmt.Errorf("%w: unknown segmentation mode %v", internalerr.ErrInvalidConfig, mode)
}

// Words yields normalized word tokens in source order.
//
// Candidates are whitespace separated; each is lower-cased and stripped of
// every rune that is not a letter or number. Candidates that end up empty or
// contain a digit are dropped. The sequence can be ranged over any number of
// times and always yields the same tokens.
func (s *Segmenter) Words(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, field := range strings.Fields(text) {
			word := s.cleanWord(field)
			if word == "" {
				continue
			}
			if !yield(word) {
				return
			}
		}
	}
}

func (s *Segmenter) cleanWord(field string) string {
	if s.foldAccents {
		field = foldAccents(field)
	}

	var b strings.Builder
	b.Grow(len(field))
	for _, r := range field {
		switch {
		case unicode.IsNumber(r):
			return ""
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// foldAccents removes combining marks. A fresh transformer is built per call
// because transform.Chain keeps internal state.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NGrams returns sliding windows of n consecutive words joined by a single
// space. For m words the result has max(0, m-n+1) entries.
func NGrams(words []string, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n-gram size must be >= 1, got %d", internalerr.ErrInvalidConfig, n)
	}
	if len(words) < n {
		return []string{}, nil
	}

	out := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+n], " "))
	}
	return out, nil
}

// Sentences splits text on '.', '!' or '?' when the terminator is followed
// by whitespace and an upper-case letter, directly by an upper-case letter,
// or by the end of the text. No stopword or digit filtering is applied.
func Sentences(text string, lower bool) []string {
	rs := []rune(text)
	var out []string
	start := 0

	emit := func(end int) {
		sent := strings.TrimSpace(string(rs[start:end]))
		start = end
		if sent == "" {
			return
		}
		if lower {
			sent = strings.ToLower(sent)
		}
		out = append(out, sent)
	}

	for i := 0; i < len(rs); i++ {
		if !isTerminator(rs[i]) {
			continue
		}

		// absorb runs such as "?!" or "..."
		j := i + 1
		for j < len(rs) && isTerminator(rs[j]) {
			j++
		}

		switch {
		case j == len(rs):
			emit(j)
			i = j
		case unicode.IsUpper(rs[j]):
			emit(j)
			i = j - 1
		case unicode.IsSpace(rs[j]):
			k := j
			for k < len(rs) && unicode.IsSpace(rs[k]) {
				k++
			}
			if k == len(rs) || unicode.IsUpper(rs[k]) {
				emit(j)
			}
			i = k - 1
		default:
			i = j - 1
		}
	}
	emit(len(rs))

	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
