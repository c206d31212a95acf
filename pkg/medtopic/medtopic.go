// Package medtopic discovers topics in clinical documents: it normalizes
// text, builds document-term and TF-IDF statistics and fits LDA models.
package medtopic

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cognicore/medtopic/pkg/medtopic/cards"
	"github.com/cognicore/medtopic/pkg/medtopic/dtm"
	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/lda"
	"github.com/cognicore/medtopic/pkg/medtopic/maintenance"
	"github.com/cognicore/medtopic/pkg/medtopic/query"
	"github.com/cognicore/medtopic/pkg/medtopic/stoplist"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
	"github.com/cognicore/medtopic/pkg/medtopic/tfidf"
	"github.com/cognicore/medtopic/pkg/medtopic/vocab"
)

// Engine is the main topic modeling facade
type Engine struct {
	store     store.Store
	pipeline  *ingest.Pipeline
	trainer   *lda.Trainer
	stops     *stoplist.Set
	workers   int
	topTerms  int
	exemplars int
	logger    *log.Logger
}

// Options configures an Engine
type Options struct {
	Store     store.Store // optional; models, cards and documents are persisted when set
	Pipeline  *ingest.Pipeline
	Trainer   *lda.Trainer
	Stoplist  *stoplist.Set // consulted for stopword suggestions
	Workers   int           // preprocessing parallelism, default 1
	TopTerms  int           // terms per topic card, default 10
	Exemplars int           // exemplar documents per card, default 3
	Logger    *log.Logger   // default log.Default()
}

// New creates an Engine with the given dependencies
func New(opts Options) (*Engine, error) {
	if opts.Pipeline == nil || opts.Trainer == nil {
		return nil, fmt.Errorf("%w: engine needs a pipeline and a trainer", internalerr.ErrInvalidConfig)
	}
	e := &Engine{
		store:     opts.Store,
		pipeline:  opts.Pipeline,
		trainer:   opts.Trainer,
		stops:     opts.Stoplist,
		workers:   opts.Workers,
		topTerms:  opts.TopTerms,
		exemplars: opts.Exemplars,
		logger:    opts.Logger,
	}
	if e.workers <= 0 {
		e.workers = 1
	}
	if e.topTerms <= 0 {
		e.topTerms = 10
	}
	if e.exemplars <= 0 {
		e.exemplars = 3
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.stops == nil {
		e.stops = stoplist.NewSet(nil)
	}
	e.trainer.SetLogger(e.logger)
	return e, nil
}

// Close cleanly shuts down the store, if any
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Corpus is a normalized document collection with its count matrix
type Corpus struct {
	Docs     []ingest.ProcessedDoc
	Matrix   *dtm.Matrix
	Warnings []ingest.Warning
	groups   map[string]ingest.GroupLabel
}

// GroupOf returns the group label of a document, or "" if it has none.
func (c *Corpus) GroupOf(docID string) ingest.GroupLabel {
	return c.groups[docID]
}

// TFIDF scores terms per document group.
func (c *Corpus) TFIDF(ctx context.Context) (*tfidf.Table, error) {
	return tfidf.New(ctx, c.Matrix, c.GroupOf)
}

// BuildCorpus normalizes documents in parallel and aggregates their terms
// into a document-term matrix. Invalid or duplicate documents are skipped
// and reported in Corpus.Warnings.
func (e *Engine) BuildCorpus(ctx context.Context, docs []ingest.Document) (*Corpus, error) {
	processed, warnings, err := e.pipeline.ProcessCorpus(ctx, docs, e.workers)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		e.logger.Printf("Warning: %d problems while preprocessing %d documents", len(warnings), len(docs))
	}

	corpus := &Corpus{
		Docs:     processed,
		Warnings: warnings,
		groups:   make(map[string]ingest.GroupLabel, len(processed)),
	}

	agg := vocab.NewAggregator()
	for _, d := range processed {
		agg.AddDocument(d.ID, d.Terms)
		if d.Group != "" {
			corpus.groups[d.ID] = d.Group
		}
	}
	v, counts := agg.Build()
	if corpus.Matrix, err = dtm.Build(counts, v); err != nil {
		return nil, err
	}

	if e.store != nil {
		text := make(map[string]string, len(docs))
		// ProcessCorpus keeps the first valid record of each id
		for _, d := range docs {
			if d.Validate() != nil {
				continue
			}
			if _, seen := text[d.ID]; !seen {
				text[d.ID] = d.Text
			}
		}
		for _, d := range processed {
			sd := store.Document{ID: d.ID, Group: string(d.Group), Text: text[d.ID], Terms: d.Terms}
			if err := e.store.UpsertDocument(ctx, sd); err != nil {
				return nil, fmt.Errorf("store document %s: %w", d.ID, err)
			}
		}
	}

	return corpus, nil
}

// Fit trains a topic model on the corpus. When a store is configured the
// model and its topic cards are saved. A numeric failure with a checkpoint
// still saves the checkpoint before the error is returned.
func (e *Engine) Fit(ctx context.Context, c *Corpus) (*lda.Model, error) {
	model, err := e.trainer.Fit(ctx, c.Matrix)
	if err != nil {
		var nerr *lda.NumericError
		if errors.As(err, &nerr) && nerr.Checkpoint != nil && e.store != nil {
			if serr := e.save(ctx, nerr.Checkpoint, c); serr != nil {
				e.logger.Printf("Warning: saving checkpoint %s: %v", nerr.Checkpoint.ID, serr)
			}
		}
		return nil, err
	}

	if e.store != nil {
		if err := e.save(ctx, model, c); err != nil {
			return nil, err
		}
	}
	return model, nil
}

func (e *Engine) save(ctx context.Context, m *lda.Model, c *Corpus) error {
	if err := e.store.SaveModel(ctx, m.Artifact()); err != nil {
		return fmt.Errorf("save model %s: %w", m.ID, err)
	}
	topicCards, err := e.cardBuilder(c).BuildAll(m)
	if err != nil {
		return err
	}
	for _, card := range topicCards {
		sc, err := cards.ToStore(card)
		if err != nil {
			return err
		}
		if err := e.store.UpsertCard(ctx, sc); err != nil {
			return fmt.Errorf("save card %s: %w", card.ID, err)
		}
	}
	return nil
}

func (e *Engine) cardBuilder(c *Corpus) *cards.Builder {
	b := cards.New()
	b.SetLimits(e.topTerms, e.exemplars)
	if c != nil {
		b.SetGroups(c.GroupOf)
	}
	return b
}

// LoadModel restores a saved model from the store.
func (e *Engine) LoadModel(ctx context.Context, id string) (*lda.Model, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: no store configured", internalerr.ErrStoreUnavailable)
	}
	a, err := e.store.LoadModel(ctx, id)
	if err != nil {
		return nil, err
	}
	return lda.FromArtifact(a)
}

// Report summarizes a fitted model over its corpus
type Report struct {
	Model              store.Header
	Diagnostics        lda.Diagnostics
	Topics             []cards.Card
	Documents          []query.DocTopics
	GroupTerms         map[ingest.GroupLabel][]tfidf.Score
	GroupTopics        map[ingest.GroupLabel][]float64
	StopwordCandidates []stoplist.Candidate
}

// Report builds topic cards, per-document mixtures, the top TF-IDF terms of
// every group and stopword suggestions.
func (e *Engine) Report(ctx context.Context, c *Corpus, m *lda.Model) (*Report, error) {
	table, err := c.TFIDF(ctx)
	if err != nil {
		return nil, err
	}

	topicCards, err := e.cardBuilder(c).BuildAll(m)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Model:              m.Artifact().Header,
		Diagnostics:        m.Diagnostics,
		Topics:             topicCards,
		Documents:          query.DocumentTopics(m),
		GroupTerms:         make(map[ingest.GroupLabel][]tfidf.Score),
		GroupTopics:        query.GroupTopicShares(m, c.GroupOf),
		StopwordCandidates: e.stops.SuggestCandidates(table.StopwordStats(), stoplist.DefaultThresholds()),
	}
	for _, g := range table.Groups() {
		terms, err := query.TopGroupTerms(table, g, e.topTerms)
		if err != nil {
			return nil, err
		}
		r.GroupTerms[g] = terms
	}
	return r, nil
}

// ApplyStopwords adds accepted candidates to the stoplist and persists the
// full list when a store is configured. Corpora built afterwards no longer
// contain the new stopwords; stored documents are updated by Reprocess.
func (e *Engine) ApplyStopwords(ctx context.Context, candidates []stoplist.Candidate) error {
	for _, c := range candidates {
		e.stops.Add(c.Token, c.Reason)
	}
	e.pipeline.RefreshPhrases()
	if e.store == nil {
		return nil
	}
	return e.store.UpsertStoplist(ctx, e.stops.All())
}

// Reprocess reruns the pipeline over every stored document and rewrites the
// terms that changed.
func (e *Engine) Reprocess(ctx context.Context) (maintenance.Result, error) {
	if e.store == nil {
		return maintenance.Result{}, fmt.Errorf("%w: no store configured", internalerr.ErrStoreUnavailable)
	}
	c := maintenance.Cleaner{Store: e.store, Pipeline: e.pipeline}
	return c.Clean(ctx)
}

// Retriever returns a retriever over m that resolves documents from the
// store when one is configured.
func (e *Engine) Retriever(m *lda.Model) *query.Retriever {
	var source query.DocumentSource
	if e.store != nil {
		source = e.store
	}
	return query.NewRetriever(m, query.NewParser(e.pipeline), source)
}
