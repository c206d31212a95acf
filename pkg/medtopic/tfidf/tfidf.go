// Package tfidf weights terms per document group (e.g. medical specialty)
// by term frequency times unsmoothed inverse group frequency.
package tfidf

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/medtopic/pkg/medtopic/dtm"
	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/stoplist"
)

// Score is the weight of one term within one group.
type Score struct {
	Term  string
	Group ingest.GroupLabel
	Count int64
	TF    float64
	IDF   float64
	TFIDF float64
}

// Table holds TF-IDF scores for every (group, term) pair with a non-zero
// count. It is read-only once built.
type Table struct {
	matrix     *dtm.Matrix
	groups     []ingest.GroupLabel
	groupIndex map[ingest.GroupLabel]int
	counts     []map[int]int64 // group → term → count
	totals     []int64
	df         []int // term → number of groups containing it
	ranked     [][]Score
}

// ByDocument groups every document on its own, giving classic per-document TF-IDF.
func ByDocument(docID string) ingest.GroupLabel {
	return ingest.GroupLabel(docID)
}

// New aggregates the matrix rows into groups and scores every group.
// Documents mapped to the empty label and groups without any term are left
// out, so they do not count towards the number of groups.
func New(ctx context.Context, m *dtm.Matrix, groupOf func(docID string) ingest.GroupLabel) (*Table, error) {
	if m == nil || groupOf == nil {
		return nil, fmt.Errorf("%w: matrix and grouping are required", internalerr.ErrInvalidInput)
	}

	byGroup := make(map[ingest.GroupLabel]map[int]int64)
	for d := 0; d < m.NumDocs(); d++ {
		g := groupOf(m.DocID(d))
		if g == "" || m.RowSum(d) == 0 {
			continue
		}
		row := byGroup[g]
		if row == nil {
			row = make(map[int]int64)
			byGroup[g] = row
		}
		for _, e := range m.Row(d) {
			row[e.Term] += e.Count
		}
	}

	t := &Table{
		matrix:     m,
		groupIndex: make(map[ingest.GroupLabel]int, len(byGroup)),
		df:         make([]int, m.NumTerms()),
	}
	for g := range byGroup {
		t.groups = append(t.groups, g)
	}
	sort.Slice(t.groups, func(i, j int) bool { return t.groups[i] < t.groups[j] })

	t.counts = make([]map[int]int64, len(t.groups))
	t.totals = make([]int64, len(t.groups))
	for i, g := range t.groups {
		t.groupIndex[g] = i
		t.counts[i] = byGroup[g]
		for term, c := range byGroup[g] {
			t.totals[i] += c
			t.df[term]++
		}
	}

	// groups are independent once df is known
	t.ranked = make([][]Score, len(t.groups))
	eg, ectx := errgroup.WithContext(ctx)
	for i := range t.groups {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			t.ranked[i] = t.rankGroup(i)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Table) rankGroup(i int) []Score {
	v := t.matrix.Vocabulary()
	out := make([]Score, 0, len(t.counts[i]))
	for term, c := range t.counts[i] {
		out = append(out, t.score(i, term, c, v.Term(term)))
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].TFIDF != out[b].TFIDF {
			return out[a].TFIDF > out[b].TFIDF
		}
		return out[a].Term < out[b].Term
	})
	return out
}

func (t *Table) score(g, term int, count int64, name string) Score {
	tf := TF(count, t.totals[g])
	idf := IDF(t.df[term], len(t.groups))
	return Score{
		Term:  name,
		Group: t.groups[g],
		Count: count,
		TF:    tf,
		IDF:   idf,
		TFIDF: tf * idf,
	}
}

// Groups returns the scored groups in lexical order.
func (t *Table) Groups() []ingest.GroupLabel {
	out := make([]ingest.GroupLabel, len(t.groups))
	copy(out, t.groups)
	return out
}

// IDF returns the inverse group frequency of a term.
func (t *Table) IDF(term string) (float64, bool) {
	idx, ok := t.matrix.Vocabulary().Index(term)
	if !ok || t.df[idx] == 0 {
		return 0, false
	}
	return IDF(t.df[idx], len(t.groups)), true
}

// Score returns the weight of term in group. A term absent from the group
// scores zero with its IDF still filled in.
func (t *Table) Score(term string, group ingest.GroupLabel) (Score, error) {
	g, ok := t.groupIndex[group]
	if !ok {
		return Score{}, fmt.Errorf("group %q: %w", group, internalerr.ErrNotFound)
	}
	idx, ok := t.matrix.Vocabulary().Index(term)
	if !ok {
		return Score{}, fmt.Errorf("term %q: %w", term, internalerr.ErrNotFound)
	}
	return t.score(g, idx, t.counts[g][idx], term), nil
}

// TopN returns the n highest-weighted terms of group, ties broken by term.
// n <= 0 returns every term of the group.
func (t *Table) TopN(group ingest.GroupLabel, n int) ([]Score, error) {
	g, ok := t.groupIndex[group]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", group, internalerr.ErrNotFound)
	}
	ranked := t.ranked[g]
	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}
	out := make([]Score, n)
	copy(out, ranked[:n])
	return out, nil
}

// StopwordStats converts corpus stats into the format expected by
// stoplist.SuggestCandidates, ordered by token.
func (t *Table) StopwordStats() []stoplist.Stats {
	v := t.matrix.Vocabulary()
	n := t.matrix.NumDocs()
	out := make([]stoplist.Stats, 0, v.Size())
	perGroup := make([]int64, len(t.groups))

	for term := 0; term < v.Size(); term++ {
		df := t.matrix.DocFreq(term)
		if df == 0 {
			continue
		}
		for g := range t.groups {
			perGroup[g] = t.counts[g][term]
		}
		st := stoplist.Stats{
			Token:        v.Term(term),
			DF:           int64(df),
			IDF:          IDF(t.df[term], len(t.groups)),
			GroupEntropy: entropy(perGroup, len(t.groups)),
		}
		if n > 0 {
			st.DFPercent = float64(df) / float64(n) * 100
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}
