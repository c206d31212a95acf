package store

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

func sampleArtifact() Artifact {
	return Artifact{
		Header: Header{
			ID: "01J0000000000000000000TEST", K: 2, V: 3, N: 2,
			Alpha: 0.1, Eta: 0.01, Seed: 7, Iterations: 50,
			CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Vocabulary: []string{"knee", "effusion", "murmur"},
		DocIDs:     []string{"a", "b"},
		Beta:       [][]float64{{0.1, 0.2, 0.7}, {1.0 / 3, 1.0 / 3, 1.0 / 3}},
		Gamma:      [][]float64{{0.25, 0.75}, {0.5, 0.5}},
	}
}

func TestArtifactJSONRoundTrip(t *testing.T) {
	a := sampleArtifact()

	var buf bytes.Buffer
	if err := WriteJSON(&buf, a); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	if got.Header.ID != a.Header.ID || !got.Header.CreatedAt.Equal(a.Header.CreatedAt) {
		t.Errorf("header = %+v", got.Header)
	}
	for k := range a.Beta {
		for w := range a.Beta[k] {
			if math.Float64bits(got.Beta[k][w]) != math.Float64bits(a.Beta[k][w]) {
				t.Errorf("beta[%d][%d] = %v, want %v", k, w, got.Beta[k][w], a.Beta[k][w])
			}
		}
	}
}

func TestValidateRejectsBadArtifacts(t *testing.T) {
	cases := map[string]func(*Artifact){
		"no id":          func(a *Artifact) { a.Header.ID = "" },
		"vocab size":     func(a *Artifact) { a.Vocabulary = a.Vocabulary[:2] },
		"unsorted docs":  func(a *Artifact) { a.DocIDs = []string{"b", "a"} },
		"beta row sum":   func(a *Artifact) { a.Beta[0][0] = 0.5 },
		"gamma width":    func(a *Artifact) { a.Gamma[1] = []float64{1} },
		"negative":       func(a *Artifact) { a.Gamma[0] = []float64{-0.5, 1.5} },
		"zero dimension": func(a *Artifact) { a.Header.K = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			a := sampleArtifact()
			mutate(&a)
			if err := a.Validate(); !errors.Is(err, internalerr.ErrInvalidInput) {
				t.Errorf("Validate() = %v, want ErrInvalidInput", err)
			}
		})
	}

	a := sampleArtifact()
	if err := a.Validate(); err != nil {
		t.Errorf("valid artifact rejected: %v", err)
	}
}
