// Package query projects fitted topic models and TF-IDF tables into ranked,
// human-readable results.
package query

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/lda"
	"github.com/cognicore/medtopic/pkg/medtopic/tfidf"
)

// TermWeight is a term with its probability under a topic.
type TermWeight struct {
	Term   string
	Weight float64
}

// DocTopics is the topic mixture of one document.
type DocTopics struct {
	DocID    string
	Dominant int
	Gamma    []float64
}

// DocWeight is a document with a score.
type DocWeight struct {
	DocID  string
	Weight float64
}

// TopTerms returns the n most probable terms of topic, ties broken by term.
// n <= 0 returns the whole vocabulary.
func TopTerms(m *lda.Model, topic, n int) ([]TermWeight, error) {
	if topic < 0 || topic >= m.K {
		return nil, fmt.Errorf("%w: topic %d outside [0,%d)", internalerr.ErrInvalidInput, topic, m.K)
	}

	row := m.BetaRow(topic)
	v := m.Vocabulary()
	out := make([]TermWeight, len(row))
	for w, p := range row {
		out[w] = TermWeight{Term: v.Term(w), Weight: p}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Term < out[j].Term
	})

	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

// DominantTopic returns the most probable topic of a document, ties going to
// the lowest topic index.
func DominantTopic(m *lda.Model, docID string) (int, error) {
	d, ok := m.DocIndex(docID)
	if !ok {
		return 0, fmt.Errorf("document %q: %w", docID, internalerr.ErrNotFound)
	}
	return floats.MaxIdx(m.GammaRow(d)), nil
}

// DocumentTopics lists every document with its dominant topic and mixture,
// in model row order.
func DocumentTopics(m *lda.Model) []DocTopics {
	ids := m.DocIDs()
	out := make([]DocTopics, len(ids))
	for d, id := range ids {
		gamma := m.GammaRow(d)
		out[d] = DocTopics{DocID: id, Dominant: floats.MaxIdx(gamma), Gamma: gamma}
	}
	return out
}

// DocCountPerTopic counts the documents whose dominant topic is k.
func DocCountPerTopic(m *lda.Model) []int {
	counts := make([]int, m.K)
	for d := 0; d < m.N; d++ {
		counts[floats.MaxIdx(m.GammaRow(d))]++
	}
	return counts
}

// TopicWeights returns the total gamma mass of each topic scaled so the
// heaviest topic is 1.
func TopicWeights(m *lda.Model) []float64 {
	weights := make([]float64, m.K)
	for d := 0; d < m.N; d++ {
		floats.Add(weights, m.GammaRow(d))
	}
	if high := floats.Max(weights); high > 0 {
		floats.Scale(1/high, weights)
	}
	return weights
}

// DocsPerTopic groups documents under their dominant topic, each list
// ordered by gamma descending then document id.
func DocsPerTopic(m *lda.Model) [][]DocWeight {
	out := make([][]DocWeight, m.K)
	for _, dt := range DocumentTopics(m) {
		out[dt.Dominant] = append(out[dt.Dominant], DocWeight{DocID: dt.DocID, Weight: dt.Gamma[dt.Dominant]})
	}
	for _, docs := range out {
		sortDocWeights(docs)
	}
	return out
}

// GroupTopicShares returns the mean topic mixture of each group. Documents
// without a label are skipped.
func GroupTopicShares(m *lda.Model, groupOf func(docID string) ingest.GroupLabel) map[ingest.GroupLabel][]float64 {
	sums := make(map[ingest.GroupLabel][]float64)
	counts := make(map[ingest.GroupLabel]int)
	for d, id := range m.DocIDs() {
		g := groupOf(id)
		if g == "" {
			continue
		}
		if sums[g] == nil {
			sums[g] = make([]float64, m.K)
		}
		floats.Add(sums[g], m.GammaRow(d))
		counts[g]++
	}
	for g, s := range sums {
		floats.Scale(1/float64(counts[g]), s)
	}
	return sums
}

// TopGroupTerms returns the n highest TF-IDF terms of a group.
func TopGroupTerms(t *tfidf.Table, group ingest.GroupLabel, n int) ([]tfidf.Score, error) {
	return t.TopN(group, n)
}

func sortDocWeights(docs []DocWeight) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Weight != docs[j].Weight {
			return docs[i].Weight > docs[j].Weight
		}
		return docs[i].DocID < docs[j].DocID
	})
}
