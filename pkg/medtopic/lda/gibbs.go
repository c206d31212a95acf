package lda

import (
	"math"
	"math/rand/v2"

	"github.com/cognicore/medtopic/pkg/medtopic/dtm"
)

// chain is the state of a collapsed Gibbs sampler over one corpus.
// docs and z are indexed by matrix row.
type chain struct {
	k, v  int
	alpha float64
	eta   float64

	docs [][]int // term ids per token
	z    [][]int // topic per token

	docTopic  [][]int // N×K
	topicTerm [][]int // K×V
	topic     []int   // K

	saved [][]int // z at the end of the last completed sweep
}

// fault describes a bad conditional probability found while sampling.
type fault struct {
	doc, pos, topic int
	value           float64
}

func newChain(m *dtm.Matrix, k int, alpha, eta float64, rng *rand.Rand) *chain {
	n, v := m.NumDocs(), m.NumTerms()
	c := &chain{
		k:         k,
		v:         v,
		alpha:     alpha,
		eta:       eta,
		docs:      make([][]int, n),
		z:         make([][]int, n),
		docTopic:  make([][]int, n),
		topicTerm: make([][]int, k),
		topic:     make([]int, k),
	}
	for t := range c.topicTerm {
		c.topicTerm[t] = make([]int, v)
	}

	for d := 0; d < n; d++ {
		words := m.Tokens(d)
		c.docs[d] = words
		c.z[d] = make([]int, len(words))
		c.docTopic[d] = make([]int, k)
		for i, w := range words {
			t := rng.IntN(k)
			c.z[d][i] = t
			c.docTopic[d][t]++
			c.topicTerm[t][w]++
			c.topic[t]++
		}
	}
	c.commit()
	return c
}

// sweep resamples every token once, in document then position order.
func (c *chain) sweep(rng *rand.Rand) *fault {
	probs := make([]float64, c.k)
	return c.sampleDocs(0, len(c.docs), c.topicTerm, c.topic, probs, rng)
}

// sampleDocs resamples documents [from, to) against the given topic-term
// counts. The parallel sampler passes private copies.
func (c *chain) sampleDocs(from, to int, topicTerm [][]int, topic []int, probs []float64, rng *rand.Rand) *fault {
	vEta := float64(c.v) * c.eta
	for d := from; d < to; d++ {
		zd := c.z[d]
		nd := c.docTopic[d]
		for i, w := range c.docs[d] {
			old := zd[i]
			nd[old]--
			topicTerm[old][w]--
			topic[old]--

			var sum float64
			for t := 0; t < c.k; t++ {
				p := (float64(nd[t]) + c.alpha) *
					(float64(topicTerm[t][w]) + c.eta) /
					(float64(topic[t]) + vEta)
				if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
					return &fault{doc: d, pos: i, topic: t, value: p}
				}
				sum += p
				probs[t] = sum
			}
			if !(sum > 0) || math.IsInf(sum, 0) {
				return &fault{doc: d, pos: i, topic: c.k - 1, value: sum}
			}

			t := draw(probs, rng.Float64()*sum)
			zd[i] = t
			nd[t]++
			topicTerm[t][w]++
			topic[t]++
		}
	}
	return nil
}

// draw returns the first index whose cumulative weight exceeds u.
func draw(cumulative []float64, u float64) int {
	for t, c := range cumulative {
		if u < c {
			return t
		}
	}
	return len(cumulative) - 1
}

// commit records the current assignments as the last good state.
func (c *chain) commit() {
	if c.saved == nil {
		c.saved = make([][]int, len(c.z))
		for d := range c.z {
			c.saved[d] = make([]int, len(c.z[d]))
		}
	}
	for d := range c.z {
		copy(c.saved[d], c.z[d])
	}
}

// restored returns a chain rebuilt from the committed assignments.
func (c *chain) restored() *chain {
	r := &chain{
		k:         c.k,
		v:         c.v,
		alpha:     c.alpha,
		eta:       c.eta,
		docs:      c.docs,
		z:         make([][]int, len(c.saved)),
		docTopic:  make([][]int, len(c.saved)),
		topicTerm: make([][]int, c.k),
		topic:     make([]int, c.k),
	}
	for t := range r.topicTerm {
		r.topicTerm[t] = make([]int, c.v)
	}
	for d, zs := range c.saved {
		r.z[d] = append([]int(nil), zs...)
		r.docTopic[d] = make([]int, c.k)
		for i, t := range zs {
			w := c.docs[d][i]
			r.docTopic[d][t]++
			r.topicTerm[t][w]++
			r.topic[t]++
		}
	}
	return r
}

// estimate fills beta (K×V) and gamma (N×K) from the current counts.
func (c *chain) estimate() (beta, gamma [][]float64) {
	vEta := float64(c.v) * c.eta
	kAlpha := float64(c.k) * c.alpha

	beta = make([][]float64, c.k)
	for t := 0; t < c.k; t++ {
		row := make([]float64, c.v)
		denom := float64(c.topic[t]) + vEta
		for w := 0; w < c.v; w++ {
			row[w] = (float64(c.topicTerm[t][w]) + c.eta) / denom
		}
		beta[t] = row
	}

	gamma = make([][]float64, len(c.docs))
	for d := range c.docs {
		row := make([]float64, c.k)
		denom := float64(len(c.docs[d])) + kAlpha
		for t := 0; t < c.k; t++ {
			row[t] = (float64(c.docTopic[d][t]) + c.alpha) / denom
		}
		gamma[d] = row
	}
	return beta, gamma
}
