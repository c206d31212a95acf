package ingest

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/stoplist"
)

// Pipeline orchestrates the normalization flow. Text is always cleaned first
// and only the cleaned string is segmented into terms:
//
//	text → markup strip → words → stopword filter → cleaned text
//	cleaned text → words → phrase merge → lemmatize            (word mode)
//	cleaned text → words → lemmatize → n-grams                 (n-gram mode)
type Pipeline struct {
	segmenter    *Segmenter
	stops        *stoplist.Set
	lemmatizer   Lemmatizer
	phrases      *PhraseMerger
	phraseSource *PhraseMerger
	ngram        int
	stripMarkup  bool
}

// NewPipeline creates a pipeline producing single-word terms.
// Stopwords and lemmatizer are required; pass stoplist.NewSet(nil) and
// Identity to disable either step.
func NewPipeline(segmenter *Segmenter, stops *stoplist.Set, lemmatizer Lemmatizer) (*Pipeline, error) {
	if segmenter == nil {
		segmenter = NewSegmenter()
	}
	if stops == nil {
		return nil, fmt.Errorf("%w: stopword set is required", internalerr.ErrInvalidConfig)
	}
	if lemmatizer == nil {
		return nil, fmt.Errorf("%w: lemmatizer is required", internalerr.ErrInvalidConfig)
	}
	return &Pipeline{
		segmenter:  segmenter,
		stops:      stops,
		lemmatizer: lemmatizer,
		ngram:      1,
	}, nil
}

// SetPhrases assigns a phrase merger used in word mode. Phrases and variants
// are normalized like document text, so a phrase containing a stopword or
// punctuation matches the cleaned tokens.
func (p *Pipeline) SetPhrases(m *PhraseMerger) {
	p.phraseSource = m
	p.RefreshPhrases()
}

// RefreshPhrases renormalizes the phrase dictionary. Call it after the
// stoplist changes.
func (p *Pipeline) RefreshPhrases() {
	p.phrases = p.phraseSource.normalized(p.Clean)
}

// SetNGram switches term extraction to n-grams of size n. n == 1 is word mode.
func (p *Pipeline) SetNGram(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: n-gram size must be >= 1, got %d", internalerr.ErrInvalidConfig, n)
	}
	p.ngram = n
	return nil
}

// SetStripMarkup enables HTML removal before tokenization.
func (p *Pipeline) SetStripMarkup(strip bool) {
	p.stripMarkup = strip
}

// Mode reports the term segmentation mode in use.
func (p *Pipeline) Mode() Mode {
	if p.ngram > 1 {
		return ModeNGram
	}
	return ModeWord
}

// Clean tokenizes text at the word level, drops stopwords and rejoins the
// survivors with single spaces.
func (p *Pipeline) Clean(text string) string {
	if p.stripMarkup {
		text = StripMarkup(text)
	}
	words := p.stops.Filter(slices.Collect(p.segmenter.Words(text)))
	return strings.Join(words, " ")
}

// Sentences segments the document into sentences. It works on the raw text
// since sentence boundaries do not survive cleaning.
func (p *Pipeline) Sentences(text string) []string {
	if p.stripMarkup {
		text = StripMarkup(text)
	}
	out, _ := p.segmenter.Segment(text, ModeSentence, 0)
	return out
}

// ProcessedDoc represents a document after normalization
type ProcessedDoc struct {
	ID      string
	Group   GroupLabel
	Cleaned string
	Terms   []string
}

// Tokens returns the terms with their document id and position.
func (d ProcessedDoc) Tokens() []Token {
	out := make([]Token, len(d.Terms))
	for i, term := range d.Terms {
		out[i] = Token{DocID: d.ID, Pos: i, Term: term}
	}
	return out
}

// Warning records a non-fatal problem with one document or token.
type Warning struct {
	DocID string
	Err   error
}

func (w Warning) Error() string {
	if w.DocID == "" {
		return w.Err.Error()
	}
	return fmt.Sprintf("document %q: %v", w.DocID, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Process runs one document through the pipeline. A malformed document is an
// error; tokens the lemmatizer rejects are dropped and reported as warnings.
func (p *Pipeline) Process(doc Document) (ProcessedDoc, []Warning, error) {
	if err := doc.Validate(); err != nil {
		return ProcessedDoc{}, nil, err
	}

	cleaned := p.Clean(doc.Text)
	words := slices.Collect(p.segmenter.Words(cleaned))

	var warnings []Warning
	lemmas := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, w := range in {
			if strings.Contains(w, " ") {
				// merged phrases are already canonical
				out = append(out, w)
				continue
			}
			lemma, err := lemmatize(p.lemmatizer, w)
			if err != nil {
				warnings = append(warnings, Warning{DocID: doc.ID, Err: err})
				continue
			}
			out = append(out, lemma)
		}
		return out
	}

	var terms []string
	if p.ngram > 1 {
		grams, err := NGrams(lemmas(words), p.ngram)
		if err != nil {
			return ProcessedDoc{}, warnings, err
		}
		terms = grams
	} else {
		terms = lemmas(p.phrases.Merge(words))
	}

	return ProcessedDoc{
		ID:      doc.ID,
		Group:   doc.Group,
		Cleaned: cleaned,
		Terms:   terms,
	}, warnings, nil
}

// IsInputError reports whether err is a per-document input problem.
func IsInputError(err error) bool {
	return errors.Is(err, internalerr.ErrInvalidInput)
}
