package ingest

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/stoplist"
)

func newTestPipeline(t *testing.T, stops []string, lem Lemmatizer) *Pipeline {
	t.Helper()
	p, err := NewPipeline(NewSegmenter(), stoplist.NewSet(stops), lem)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestPipelineRequiresBindings(t *testing.T) {
	if _, err := NewPipeline(nil, nil, Identity); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("missing stopwords: expected config error, got %v", err)
	}
	if _, err := NewPipeline(nil, stoplist.NewSet(nil), nil); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("missing lemmatizer: expected config error, got %v", err)
	}
}

func TestPipelineClean(t *testing.T) {
	p := newTestPipeline(t, []string{"the", "was", "in", "a"}, Identity)

	got := p.Clean("The patient was placed in the lithotomy position, prepped 3 times.")
	want := "patient placed lithotomy position prepped times"
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestPipelineProcessWords(t *testing.T) {
	lem := LemmatizerFunc(func(tok string) (string, error) {
		return strings.TrimSuffix(tok, "s"), nil
	})
	p := newTestPipeline(t, []string{"the", "of"}, lem)

	out, warns, err := p.Process(Document{ID: "d1", Text: "The incisions of the knees", Group: "Orthopedic"})
	if err != nil {
		t.Fatal(err)
	}
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if !reflect.DeepEqual(out.Terms, []string{"incision", "knee"}) {
		t.Errorf("Terms = %v", out.Terms)
	}
	if out.Group != "Orthopedic" || out.ID != "d1" {
		t.Errorf("metadata lost: %+v", out)
	}

	toks := out.Tokens()
	if len(toks) != 2 || toks[1].Pos != 1 || toks[1].DocID != "d1" || toks[1].Term != "knee" {
		t.Errorf("Tokens() = %+v", toks)
	}
}

func TestPipelineCleanThenSegmentNGrams(t *testing.T) {
	p := newTestPipeline(t, []string{"the", "in"}, Identity)
	if err := p.SetNGram(2); err != nil {
		t.Fatal(err)
	}
	if p.Mode() != ModeNGram {
		t.Errorf("Mode() = %v", p.Mode())
	}

	out, _, err := p.Process(Document{ID: "d1", Text: "placed in the lithotomy position"})
	if err != nil {
		t.Fatal(err)
	}

	// Stopwords are removed before windows are formed, so "placed lithotomy"
	// appears and "in the" never does.
	want := []string{"placed lithotomy", "lithotomy position"}
	if !reflect.DeepEqual(out.Terms, want) {
		t.Errorf("Terms = %v, want %v", out.Terms, want)
	}
}

func TestPipelinePhrases(t *testing.T) {
	p := newTestPipeline(t, []string{"the", "in"}, Identity)
	p.SetPhrases(NewPhraseMerger([]PhraseEntry{{Canonical: "lithotomy position"}}))

	out, _, err := p.Process(Document{ID: "d1", Text: "placed in the lithotomy position"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"placed", "lithotomy position"}
	if !reflect.DeepEqual(out.Terms, want) {
		t.Errorf("Terms = %v, want %v", out.Terms, want)
	}
}

func TestPipelinePhrasesNormalizedLikeText(t *testing.T) {
	p := newTestPipeline(t, []string{"of"}, Identity)
	p.SetPhrases(NewPhraseMerger([]PhraseEntry{
		{Canonical: "range of motion", Variants: []string{"ROM"}},
		{Canonical: "Sjogren's syndrome"},
	}))

	got, _, err := p.Process(Document{ID: "d1", Text: "Limited range of motion in Sjogren's syndrome, ROM improving."})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := []string{"limited", "range motion", "in", "sjogrens syndrome", "range motion", "improving"}
	if !reflect.DeepEqual(got.Terms, want) {
		t.Errorf("Terms = %v, want %v", got.Terms, want)
	}
}

func TestPipelineRefreshPhrasesAfterStoplistChange(t *testing.T) {
	stops := stoplist.NewSet(nil)
	p, err := NewPipeline(NewSegmenter(), stops, Identity)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.SetPhrases(NewPhraseMerger([]PhraseEntry{{Canonical: "fracture of femur"}}))

	stops.Add("of", stoplist.Reason{})
	p.RefreshPhrases()

	got, _, err := p.Process(Document{ID: "d1", Text: "open fracture of femur"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := []string{"open", "fracture femur"}
	if !reflect.DeepEqual(got.Terms, want) {
		t.Errorf("Terms = %v, want %v", got.Terms, want)
	}
}

func TestPipelineLemmatizerFailureDropsToken(t *testing.T) {
	lem := LemmatizerFunc(func(tok string) (string, error) {
		switch tok {
		case "xyzzy":
			return "", ErrMalformedToken
		case "blank":
			return "  ", nil
		}
		return tok, nil
	})
	p := newTestPipeline(t, nil, lem)

	out, warns, err := p.Process(Document{ID: "d9", Text: "fever xyzzy blank cough"})
	if err != nil {
		t.Fatalf("lemmatizer failure must not abort the document: %v", err)
	}
	if !reflect.DeepEqual(out.Terms, []string{"fever", "cough"}) {
		t.Errorf("Terms = %v", out.Terms)
	}
	if len(warns) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warns)
	}
	for _, w := range warns {
		if w.DocID != "d9" || !IsInputError(w) {
			t.Errorf("unexpected warning %v", w)
		}
	}
}

func TestPipelineStripMarkup(t *testing.T) {
	p := newTestPipeline(t, nil, Identity)
	p.SetStripMarkup(true)

	got := p.Clean("<p>Left&nbsp;knee</p><p>effusion</p>")
	if got != "left knee effusion" {
		t.Errorf("Clean() = %q", got)
	}
}

func TestPipelineSentences(t *testing.T) {
	p := newTestPipeline(t, []string{"the"}, Identity)

	got := p.Sentences("The wound was closed. No complications.")
	want := []string{"the wound was closed.", "no complications."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences() = %q, want %q", got, want)
	}
}

func TestPipelineInvalidDocument(t *testing.T) {
	p := newTestPipeline(t, nil, Identity)
	if _, _, err := p.Process(Document{ID: "x"}); !IsInputError(err) {
		t.Errorf("expected input error, got %v", err)
	}
}

func TestSetNGramInvalid(t *testing.T) {
	p := newTestPipeline(t, nil, Identity)
	if err := p.SetNGram(0); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected config error, got %v", err)
	}
}
