// Package dtm holds the sparse document-term count matrix shared by the
// TF-IDF calculator and the topic model trainer.
package dtm

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/vocab"
)

// Entry is one non-zero cell of a document row.
type Entry struct {
	Term  int
	Count int64
}

// Posting is one non-zero cell of a term column.
type Posting struct {
	Doc   int
	Count int64
}

// Matrix is an immutable sparse document×term count matrix.
// Rows are ordered by document id ascending; every document has a row even
// when it has no entries. Zero cells are never stored.
type Matrix struct {
	vocab    *vocab.Vocabulary
	docIDs   []string
	docIndex map[string]int
	rows     [][]Entry   // sorted by term index
	cols     [][]Posting // sorted by document row
	rowSums  []int64
	colSums  []int64
	total    int64
}

// Build creates a matrix from an aggregated count table. Term indices in the
// table must belong to v.
func Build(counts *vocab.Counts, v *vocab.Vocabulary) (*Matrix, error) {
	if counts == nil || v == nil {
		return nil, fmt.Errorf("%w: counts and vocabulary are required", internalerr.ErrInvalidInput)
	}

	docIDs := counts.Docs()
	sort.Strings(docIDs)

	m := &Matrix{
		vocab:    v,
		docIDs:   docIDs,
		docIndex: make(map[string]int, len(docIDs)),
		rows:     make([][]Entry, len(docIDs)),
		cols:     make([][]Posting, v.Size()),
		rowSums:  make([]int64, len(docIDs)),
		colSums:  make([]int64, v.Size()),
	}

	for d, id := range docIDs {
		m.docIndex[id] = d
		row := counts.Row(id)
		entries := make([]Entry, 0, len(row))
		for t, c := range row {
			if t < 0 || t >= v.Size() {
				return nil, fmt.Errorf("%w: term index %d outside vocabulary of %d", internalerr.ErrInvalidInput, t, v.Size())
			}
			if c < 0 {
				return nil, fmt.Errorf("%w: negative count %d for (%s, %d)", internalerr.ErrInvalidInput, c, id, t)
			}
			if c == 0 {
				continue
			}
			entries = append(entries, Entry{Term: t, Count: c})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })
		m.rows[d] = entries

		for _, e := range entries {
			m.cols[e.Term] = append(m.cols[e.Term], Posting{Doc: d, Count: e.Count})
			m.rowSums[d] += e.Count
			m.colSums[e.Term] += e.Count
			m.total += e.Count
		}
	}

	return m, nil
}

// Vocabulary returns the vocabulary the column indices refer to.
func (m *Matrix) Vocabulary() *vocab.Vocabulary { return m.vocab }

// NumDocs returns the number of rows.
func (m *Matrix) NumDocs() int { return len(m.docIDs) }

// NumTerms returns the number of columns.
func (m *Matrix) NumTerms() int { return m.vocab.Size() }

// DocID returns the document id of row d.
func (m *Matrix) DocID(d int) string { return m.docIDs[d] }

// DocIDs returns a copy of the row ids.
func (m *Matrix) DocIDs() []string {
	out := make([]string, len(m.docIDs))
	copy(out, m.docIDs)
	return out
}

// DocIndex returns the row of a document id.
func (m *Matrix) DocIndex(id string) (int, bool) {
	d, ok := m.docIndex[id]
	return d, ok
}

// Row returns the non-zero entries of row d. The slice must not be modified.
func (m *Matrix) Row(d int) []Entry { return m.rows[d] }

// Column returns the non-zero postings of term t. The slice must not be modified.
func (m *Matrix) Column(t int) []Posting { return m.cols[t] }

// At returns the count at (d, t).
func (m *Matrix) At(d, t int) int64 {
	row := m.rows[d]
	i := sort.Search(len(row), func(i int) bool { return row[i].Term >= t })
	if i < len(row) && row[i].Term == t {
		return row[i].Count
	}
	return 0
}

// RowSum returns the number of retained tokens in row d.
func (m *Matrix) RowSum(d int) int64 { return m.rowSums[d] }

// ColumnSum returns the corpus frequency of term t.
func (m *Matrix) ColumnSum(t int) int64 { return m.colSums[t] }

// DocFreq returns the number of documents containing term t.
func (m *Matrix) DocFreq(t int) int { return len(m.cols[t]) }

// Total returns the number of tokens in the corpus.
func (m *Matrix) Total() int64 { return m.total }

// Tokens expands row d into a token stream of term indices, grouped by term
// in ascending index order.
func (m *Matrix) Tokens(d int) []int {
	out := make([]int, 0, m.rowSums[d])
	for _, e := range m.rows[d] {
		for i := int64(0); i < e.Count; i++ {
			out = append(out, e.Term)
		}
	}
	return out
}

// Dense returns a row-major N×V copy of the counts. The sparse storage is left
// untouched; callers should only use this for small corpora.
func (m *Matrix) Dense() *mat.Dense {
	r, c := m.NumDocs(), m.NumTerms()
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	dense := mat.NewDense(r, c, nil)
	for d, row := range m.rows {
		for _, e := range row {
			dense.Set(d, e.Term, float64(e.Count))
		}
	}
	return dense
}
