package ingest

import (
	"reflect"
	"testing"
)

func TestPhraseMergerBasic(t *testing.T) {
	merger := NewPhraseMerger([]PhraseEntry{
		{Canonical: "lithotomy position", Variants: []string{"dorsal lithotomy position"}},
		{Canonical: "blood pressure", Variants: []string{"bp"}},
	})

	tokens := []string{"placed", "dorsal", "lithotomy", "position", "bp", "stable"}
	got := merger.Merge(tokens)
	want := []string{"placed", "lithotomy position", "blood pressure", "stable"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
}

func TestPhraseMergerGreedyLongest(t *testing.T) {
	merger := NewPhraseMerger([]PhraseEntry{
		{Canonical: "heart failure"},
		{Canonical: "congestive heart failure"},
	})

	got := merger.Merge([]string{"congestive", "heart", "failure", "noted"})
	want := []string{"congestive heart failure", "noted"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
}

func TestPhraseMergerNil(t *testing.T) {
	var merger *PhraseMerger
	tokens := []string{"a", "b"}
	if got := merger.Merge(tokens); !reflect.DeepEqual(got, tokens) {
		t.Errorf("nil merger changed tokens: %v", got)
	}
	if merger.Len() != 0 {
		t.Error("nil merger should be empty")
	}
}
