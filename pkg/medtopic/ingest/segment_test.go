package ingest

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"
	"unicode"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

func TestWordsBasic(t *testing.T) {
	seg := NewSegmenter()

	got := slices.Collect(seg.Words("The patient, a 45-year-old male, presented with CHEST pain."))
	want := []string{"the", "patient", "a", "male", "presented", "with", "chest", "pain"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words() = %v, want %v", got, want)
	}
}

func TestWordsStripPunctuation(t *testing.T) {
	seg := NewSegmenter()

	got := slices.Collect(seg.Words("follow-up (PRN) s/p ... --"))
	want := []string{"followup", "prn", "sp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words() = %v, want %v", got, want)
	}
}

func TestWordsNoWhitespaceNoDigits(t *testing.T) {
	seg := NewSegmenter()

	texts := []string{
		"BP 120/80, HR 72 bpm; T2DM dx in 2019.",
		"Dose:\t5mg\nq.d.  x3 days",
		"  multiple   spaces and unicode   ",
		"½ tab ² ③ mixed",
		"",
	}
	for _, text := range texts {
		for tok := range seg.Words(text) {
			if tok == "" {
				t.Errorf("empty token from %q", text)
			}
			for _, r := range tok {
				if unicode.IsSpace(r) || unicode.IsDigit(r) || unicode.IsNumber(r) {
					t.Errorf("token %q from %q contains %q", tok, text, r)
				}
			}
		}
	}
}

func TestWordsRestartable(t *testing.T) {
	seg := NewSegmenter()
	seq := seg.Words("left knee arthroscopy")

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass differs: %v vs %v", first, second)
	}

	// early break must not disturb later iterations
	for tok := range seq {
		if tok != "left" {
			t.Errorf("first token = %q", tok)
		}
		break
	}
	if got := slices.Collect(seq); len(got) != 3 {
		t.Errorf("expected 3 tokens after break, got %v", got)
	}
}

func TestWordsFoldAccents(t *testing.T) {
	seg := NewSegmenter()
	seg.SetFoldAccents(true)

	got := slices.Collect(seg.Words("Sjögren naïve café"))
	want := []string{"sjogren", "naive", "cafe"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words() = %v, want %v", got, want)
	}

	plain := NewSegmenter()
	if got := slices.Collect(plain.Words("naïve")); got[0] != "naïve" {
		t.Errorf("accents should be kept by default, got %v", got)
	}
}

func TestNGramCount(t *testing.T) {
	words := []string{"patient", "placed", "lithotomy", "position", "prepped", "draped"}

	for n := 1; n <= 8; n++ {
		grams, err := NGrams(words, n)
		if err != nil {
			t.Fatalf("NGrams(%d): %v", n, err)
		}
		want := max(0, len(words)-n+1)
		if len(grams) != want {
			t.Errorf("NGrams(%d) produced %d grams, want %d", n, len(grams), want)
		}
		for _, g := range grams {
			if got := len(strings.Split(g, " ")); got != n {
				t.Errorf("gram %q has %d words, want %d", g, got, n)
			}
		}
	}
}

func TestNGramWindows(t *testing.T) {
	grams, err := NGrams([]string{"lithotomy", "position", "prepped"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"lithotomy position", "position prepped"}
	if !reflect.DeepEqual(grams, want) {
		t.Errorf("NGrams() = %v, want %v", grams, want)
	}
}

func TestNGramInvalidSize(t *testing.T) {
	_, err := NGrams([]string{"a"}, 0)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSegmentModes(t *testing.T) {
	seg := NewSegmenter()
	text := "Patient tolerated the procedure well. Transferred to PACU in stable condition."

	words, err := seg.Segment(text, ModeWord, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 11 {
		t.Errorf("word mode produced %d tokens: %v", len(words), words)
	}

	grams, err := seg.Segment(text, ModeNGram, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(grams) != len(words)-2 {
		t.Errorf("ngram mode produced %d grams, want %d", len(grams), len(words)-2)
	}

	sents, err := seg.Segment(text, ModeSentence, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"patient tolerated the procedure well.",
		"transferred to pacu in stable condition.",
	}
	if !reflect.DeepEqual(sents, want) {
		t.Errorf("sentence mode = %q, want %q", sents, want)
	}
}

func TestSentencesHeuristic(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"decimal", "Dose was 2.5 mg. Repeat in 4 hours.", []string{"Dose was 2.5 mg.", "Repeat in 4 hours."}},
		{"lowercase continuation", "Given e.g. aspirin. Then stop.", []string{"Given e.g. aspirin.", "Then stop."}},
		{"exclamation and question", "Pain? Yes! Severe.", []string{"Pain?", "Yes!", "Severe."}},
		{"no space capital", "Stable.Discharged home.", []string{"Stable.", "Discharged home."}},
		{"ellipsis", "Wait... Then proceed", []string{"Wait...", "Then proceed"}},
		{"keeps digits", "Step 1. 2 tablets daily.", []string{"Step 1. 2 tablets daily."}},
		{"empty", "   ", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sentences(tc.text, false)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Sentences(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestSegmentKeepSentenceCase(t *testing.T) {
	seg := NewSegmenter()
	seg.SetKeepSentenceCase(true)

	got, _ := seg.Segment("Hello There. Bye.", ModeSentence, 0)
	if got[0] != "Hello There." {
		t.Errorf("case should be kept, got %q", got[0])
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"word": ModeWord, "": ModeWord, "NGram": ModeNGram, "sentences": ModeSentence} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("paragraph"); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected config error, got %v", err)
	}
}
