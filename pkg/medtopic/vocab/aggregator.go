package vocab

import "sort"

// Aggregator accumulates (document, term) occurrences into a sparse count
// table. Term indices are assigned in first-seen order, so feeding documents
// in a fixed order always yields the same vocabulary.
//
// An Aggregator is a single-writer reduce step and is not safe for concurrent
// use; build one per shard and Merge them in a fixed order instead.
type Aggregator struct {
	docs      []string
	docIndex  map[string]int
	terms     []string
	termIndex map[string]int
	counts    []map[int]int64 // per document: term index → count
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		docIndex:  make(map[string]int),
		termIndex: make(map[string]int),
	}
}

// AddDocument registers a document and adds its terms. A document with no
// terms is still registered and ends up with an empty row. Adding the same
// document again accumulates counts.
func (a *Aggregator) AddDocument(docID string, terms []string) {
	d := a.doc(docID)
	for _, t := range terms {
		if t == "" {
			continue
		}
		a.counts[d][a.term(t)]++
	}
}

// Add records a single occurrence of term in docID.
func (a *Aggregator) Add(docID, term string) {
	a.AddDocument(docID, []string{term})
}

// Merge folds other into a. Documents and terms unknown to a are appended in
// other's first-seen order; counts for known pairs are summed.
func (a *Aggregator) Merge(other *Aggregator) {
	for od, docID := range other.docs {
		d := a.doc(docID)
		// walk other's term indices in ascending order to keep first-seen order stable
		idx := make([]int, 0, len(other.counts[od]))
		for ot := range other.counts[od] {
			idx = append(idx, ot)
		}
		sort.Ints(idx)
		for _, ot := range idx {
			a.counts[d][a.term(other.terms[ot])] += other.counts[od][ot]
		}
	}
}

// NumDocs returns the number of registered documents.
func (a *Aggregator) NumDocs() int { return len(a.docs) }

// NumTerms returns the number of distinct terms seen so far.
func (a *Aggregator) NumTerms() int { return len(a.terms) }

func (a *Aggregator) doc(docID string) int {
	if d, ok := a.docIndex[docID]; ok {
		return d
	}
	d := len(a.docs)
	a.docs = append(a.docs, docID)
	a.docIndex[docID] = d
	a.counts = append(a.counts, make(map[int]int64))
	return d
}

func (a *Aggregator) term(t string) int {
	if i, ok := a.termIndex[t]; ok {
		return i
	}
	i := len(a.terms)
	a.terms = append(a.terms, t)
	a.termIndex[t] = i
	return i
}

// Build snapshots the aggregator into an immutable vocabulary and count table.
// Later additions to the aggregator do not affect the returned values.
func (a *Aggregator) Build() (*Vocabulary, *Counts) {
	terms := make([]string, len(a.terms))
	copy(terms, a.terms)
	index := make(map[string]int, len(a.termIndex))
	for t, i := range a.termIndex {
		index[t] = i
	}

	docs := make([]string, len(a.docs))
	copy(docs, a.docs)
	rows := make(map[string]map[int]int64, len(a.docs))
	for d, docID := range a.docs {
		row := make(map[int]int64, len(a.counts[d]))
		for t, c := range a.counts[d] {
			row[t] = c
		}
		rows[docID] = row
	}

	return &Vocabulary{terms: terms, index: index}, &Counts{docs: docs, rows: rows}
}

// Counts is a sparse count table keyed by (document id, term index).
type Counts struct {
	docs []string
	rows map[string]map[int]int64
}

// Docs returns document ids in registration order.
func (c *Counts) Docs() []string {
	out := make([]string, len(c.docs))
	copy(out, c.docs)
	return out
}

// Get returns the count of term index t in docID.
func (c *Counts) Get(docID string, t int) int64 {
	return c.rows[docID][t]
}

// Has reports whether docID is registered, even with no terms.
func (c *Counts) Has(docID string) bool {
	_, ok := c.rows[docID]
	return ok
}

// Row returns a copy of docID's non-zero counts.
func (c *Counts) Row(docID string) map[int]int64 {
	row := c.rows[docID]
	out := make(map[int]int64, len(row))
	for t, n := range row {
		out[t] = n
	}
	return out
}

// Total returns the sum of all counts.
func (c *Counts) Total() int64 {
	var total int64
	for _, row := range c.rows {
		for _, n := range row {
			total += n
		}
	}
	return total
}
