package vocab

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

func TestAggregatorFirstSeenOrder(t *testing.T) {
	agg := NewAggregator()
	agg.AddDocument("d2", []string{"knee", "pain", "knee"})
	agg.AddDocument("d1", []string{"chest", "pain"})

	v, counts := agg.Build()

	if !reflect.DeepEqual(v.Terms(), []string{"knee", "pain", "chest"}) {
		t.Errorf("Terms() = %v", v.Terms())
	}
	if !reflect.DeepEqual(counts.Docs(), []string{"d2", "d1"}) {
		t.Errorf("Docs() = %v", counts.Docs())
	}

	knee, _ := v.Index("knee")
	pain, _ := v.Index("pain")
	if got := counts.Get("d2", knee); got != 2 {
		t.Errorf("count(d2, knee) = %d, want 2", got)
	}
	if got := counts.Get("d1", pain); got != 1 {
		t.Errorf("count(d1, pain) = %d, want 1", got)
	}
	if counts.Total() != 5 {
		t.Errorf("Total() = %d, want 5", counts.Total())
	}
}

func TestAggregatorAccumulates(t *testing.T) {
	agg := NewAggregator()
	agg.Add("d1", "fever")
	agg.Add("d1", "fever")
	agg.AddDocument("d1", []string{"fever", "cough"})

	v, counts := agg.Build()
	fever, _ := v.Index("fever")
	if got := counts.Get("d1", fever); got != 3 {
		t.Errorf("count(d1, fever) = %d, want 3", got)
	}
}

func TestAggregatorEmptyDocument(t *testing.T) {
	agg := NewAggregator()
	agg.AddDocument("empty", nil)
	agg.AddDocument("full", []string{"x"})

	_, counts := agg.Build()
	if !counts.Has("empty") {
		t.Fatal("empty document should be registered")
	}
	if len(counts.Row("empty")) != 0 {
		t.Errorf("empty document should have no entries, got %v", counts.Row("empty"))
	}
	if agg.NumDocs() != 2 || agg.NumTerms() != 1 {
		t.Errorf("NumDocs=%d NumTerms=%d", agg.NumDocs(), agg.NumTerms())
	}
}

func TestAggregatorMerge(t *testing.T) {
	left := NewAggregator()
	left.AddDocument("d1", []string{"a", "b"})

	right := NewAggregator()
	right.AddDocument("d2", []string{"c", "a"})
	right.AddDocument("d1", []string{"b"})

	left.Merge(right)
	v, counts := left.Build()

	if !reflect.DeepEqual(v.Terms(), []string{"a", "b", "c"}) {
		t.Errorf("Terms() = %v", v.Terms())
	}
	b, _ := v.Index("b")
	if got := counts.Get("d1", b); got != 2 {
		t.Errorf("merged count(d1, b) = %d, want 2", got)
	}
	if counts.Total() != 5 {
		t.Errorf("Total() = %d, want 5", counts.Total())
	}
}

func TestBuildIsSnapshot(t *testing.T) {
	agg := NewAggregator()
	agg.AddDocument("d1", []string{"a"})
	v, counts := agg.Build()

	agg.AddDocument("d1", []string{"a", "z"})

	if v.Size() != 1 {
		t.Errorf("vocabulary grew after Build: %v", v.Terms())
	}
	if counts.Total() != 1 {
		t.Errorf("counts changed after Build: %d", counts.Total())
	}
}

func TestNewVocabulary(t *testing.T) {
	v, err := NewVocabulary([]string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if i, ok := v.Index("beta"); !ok || i != 1 {
		t.Errorf("Index(beta) = %d, %v", i, ok)
	}
	if v.Term(0) != "alpha" || v.Term(5) != "" || v.Term(-1) != "" {
		t.Error("Term() bounds handling broken")
	}

	if _, err := NewVocabulary([]string{"a", "a"}); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("expected duplicate error, got %v", err)
	}
	if _, err := NewVocabulary([]string{"a", " "}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected invalid input error, got %v", err)
	}
}

func TestNilVocabulary(t *testing.T) {
	var v *Vocabulary
	if v.Size() != 0 || v.Terms() != nil {
		t.Error("nil vocabulary should be empty")
	}
	if _, ok := v.Index("x"); ok {
		t.Error("nil vocabulary should not find terms")
	}
}
