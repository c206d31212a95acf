package query

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/lda"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
)

// Parser turns free text into model terms with the corpus pipeline
type Parser struct {
	pipeline *ingest.Pipeline
}

// NewParser creates a new query parser
func NewParser(p *ingest.Pipeline) *Parser {
	return &Parser{pipeline: p}
}

// Parse normalizes queryStr exactly as corpus documents are normalized.
func (p *Parser) Parse(queryStr string) ([]string, error) {
	doc, _, err := p.pipeline.Process(ingest.Document{ID: "query", Text: queryStr})
	if err != nil {
		return nil, err
	}
	return doc.Terms, nil
}

// DocumentSource resolves stored documents for retrieval results
type DocumentSource interface {
	GetDocument(ctx context.Context, id string) (store.Document, error)
}

// Match is a document similar to a query
type Match struct {
	DocID      string
	Similarity float64 // 1 - Hellinger distance
	Dominant   int
	Document   *store.Document // nil when no source is set or the document is unknown
}

// Retriever ranks corpus documents by topic similarity to a query
type Retriever struct {
	model      *lda.Model
	parser     *Parser
	source     DocumentSource
	iterations int
	seed       uint64
}

// NewRetriever creates a new retriever. source may be nil.
func NewRetriever(m *lda.Model, parser *Parser, source DocumentSource) *Retriever {
	return &Retriever{model: m, parser: parser, source: source, iterations: 100, seed: 1}
}

// Retrieve infers the query's topic mixture and returns up to limit
// documents ordered by similarity, then document id.
func (r *Retriever) Retrieve(ctx context.Context, queryStr string, limit int) ([]Match, error) {
	if r.model == nil || r.parser == nil {
		return nil, errors.New("retriever is missing a model or parser")
	}
	if limit <= 0 {
		limit = 10 // default
	}

	terms, err := r.parser.Parse(queryStr)
	if err != nil {
		return nil, err
	}
	theta, err := r.model.Infer(terms, r.iterations, r.seed)
	if err != nil {
		return nil, fmt.Errorf("infer query topics: %w", err)
	}

	scored := make([]DocWeight, 0, r.model.N)
	for d, id := range r.model.DocIDs() {
		scored = append(scored, DocWeight{DocID: id, Weight: 1 - Hellinger(theta, r.model.GammaRow(d))})
	}
	sortDocWeights(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	matches := make([]Match, 0, len(scored))
	for _, s := range scored {
		d, _ := r.model.DocIndex(s.DocID)
		m := Match{DocID: s.DocID, Similarity: s.Weight, Dominant: floats.MaxIdx(r.model.GammaRow(d))}
		if r.source != nil {
			doc, err := r.source.GetDocument(ctx, s.DocID)
			switch {
			case err == nil:
				m.Document = &doc
			case !errors.Is(err, internalerr.ErrNotFound):
				return nil, err
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Hellinger returns the Hellinger distance between two distributions of
// equal length, in [0,1].
func Hellinger(p, q []float64) float64 {
	var sum float64
	for i := range p {
		d := math.Sqrt(p[i]) - math.Sqrt(q[i])
		sum += d * d
	}
	return math.Sqrt(sum / 2)
}
