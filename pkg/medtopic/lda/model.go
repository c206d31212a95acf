package lda

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
	"github.com/cognicore/medtopic/pkg/medtopic/vocab"
)

// LikelihoodPoint is one recorded log-likelihood value.
type LikelihoodPoint struct {
	Sweep int
	Value float64
}

// Diagnostics describes how a training run went.
type Diagnostics struct {
	LogLikelihood []LikelihoodPoint
	Converged     bool // last recorded change was within tolerance
	StoppedEarly  bool // context cancelled before the sweep budget was used
	Warnings      []error
}

// Model is a fitted topic model. It is immutable once returned.
type Model struct {
	ID         string
	K, V, N    int
	Alpha, Eta float64
	Seed       uint64
	Iterations int // sweeps completed
	CreatedAt  time.Time

	Diagnostics Diagnostics

	vocab    *vocab.Vocabulary
	docIDs   []string
	docIndex map[string]int
	beta     *mat.Dense // K×V
	gamma    *mat.Dense // N×K
}

func newModel(id string, v *vocab.Vocabulary, docIDs []string, beta, gamma [][]float64) *Model {
	k, n := len(beta), len(gamma)
	m := &Model{
		ID:       id,
		K:        k,
		V:        v.Size(),
		N:        n,
		vocab:    v,
		docIDs:   docIDs,
		docIndex: make(map[string]int, n),
		beta:     mat.NewDense(k, v.Size(), flatten(beta, v.Size())),
		gamma:    mat.NewDense(n, k, flatten(gamma, k)),
	}
	for i, id := range docIDs {
		m.docIndex[id] = i
	}
	return m
}

func flatten(rows [][]float64, width int) []float64 {
	out := make([]float64, 0, len(rows)*width)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// Vocabulary returns the term index used by Beta columns.
func (m *Model) Vocabulary() *vocab.Vocabulary { return m.vocab }

// DocIDs returns the document ids in Gamma row order.
func (m *Model) DocIDs() []string {
	out := make([]string, len(m.docIDs))
	copy(out, m.docIDs)
	return out
}

// DocIndex returns the Gamma row of a document.
func (m *Model) DocIndex(id string) (int, bool) {
	d, ok := m.docIndex[id]
	return d, ok
}

// Beta returns a read-only view of the K×V topic-term matrix.
func (m *Model) Beta() mat.Matrix { return m.beta }

// Gamma returns a read-only view of the N×K document-topic matrix.
func (m *Model) Gamma() mat.Matrix { return m.gamma }

// BetaRow returns a copy of the term distribution of topic k.
func (m *Model) BetaRow(k int) []float64 {
	return mat.Row(nil, k, m.beta)
}

// GammaRow returns a copy of the topic distribution of document row d.
func (m *Model) GammaRow(d int) []float64 {
	return mat.Row(nil, d, m.gamma)
}

// Artifact converts the model to its persisted form.
func (m *Model) Artifact() store.Artifact {
	a := store.Artifact{
		Header: store.Header{
			ID:         m.ID,
			K:          m.K,
			V:          m.V,
			N:          m.N,
			Alpha:      m.Alpha,
			Eta:        m.Eta,
			Seed:       m.Seed,
			Iterations: m.Iterations,
			CreatedAt:  m.CreatedAt,
		},
		Vocabulary: m.vocab.Terms(),
		DocIDs:     m.DocIDs(),
		Beta:       make([][]float64, m.K),
		Gamma:      make([][]float64, m.N),
	}
	for k := range a.Beta {
		a.Beta[k] = m.BetaRow(k)
	}
	for d := range a.Gamma {
		a.Gamma[d] = m.GammaRow(d)
	}
	return a
}

// FromArtifact restores a model from its persisted form.
func FromArtifact(a store.Artifact) (*Model, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	v, err := vocab.NewVocabulary(a.Vocabulary)
	if err != nil {
		return nil, err
	}
	m := newModel(a.Header.ID, v, append([]string(nil), a.DocIDs...), a.Beta, a.Gamma)
	m.Alpha = a.Header.Alpha
	m.Eta = a.Header.Eta
	m.Seed = a.Header.Seed
	m.Iterations = a.Header.Iterations
	m.CreatedAt = a.Header.CreatedAt
	return m, nil
}

// Infer estimates the topic distribution of an unseen document by Gibbs
// sampling its assignments against the fixed topic-term distributions.
// Terms outside the vocabulary are ignored. Counts from the second half of
// the iterations are averaged.
func (m *Model) Infer(terms []string, iterations int, seed uint64) ([]float64, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations must be positive", internalerr.ErrInvalidInput)
	}
	words := make([]int, 0, len(terms))
	for _, term := range terms {
		if w, ok := m.vocab.Index(term); ok {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: no known terms", internalerr.ErrInvalidInput)
	}

	rng := rand.New(rand.NewPCG(seed, uint64(len(words))))
	z := make([]int, len(words))
	nd := make([]int, m.K)
	for i := range words {
		z[i] = rng.IntN(m.K)
		nd[z[i]]++
	}

	burnin := iterations / 2
	acc := make([]float64, m.K)
	samples := 0
	probs := make([]float64, m.K)
	for it := 0; it < iterations; it++ {
		for i, w := range words {
			nd[z[i]]--
			var sum float64
			for k := 0; k < m.K; k++ {
				sum += (float64(nd[k]) + m.Alpha) * m.beta.At(k, w)
				probs[k] = sum
			}
			z[i] = draw(probs, rng.Float64()*sum)
			nd[z[i]]++
		}
		if it >= burnin {
			for k, c := range nd {
				acc[k] += float64(c)
			}
			samples++
		}
	}

	denom := float64(len(words)) + float64(m.K)*m.Alpha
	out := make([]float64, m.K)
	for k := range out {
		out[k] = (acc[k]/float64(samples) + m.Alpha) / denom
	}
	return out, nil
}
