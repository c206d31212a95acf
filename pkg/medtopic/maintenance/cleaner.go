// Package maintenance reprocesses stored documents after the stoplist,
// phrase dictionary or lexicon change.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
)

// DocSource abstracts how we iterate documents for cleaning.
type DocSource interface {
	Next(ctx context.Context) (store.Document, bool, error)
}

// Cleaner reprocesses documents after stoplist or dictionary updates.
type Cleaner struct {
	Store    store.Store
	Pipeline *ingest.Pipeline
	Source   DocSource // nil iterates every document in Store
}

// Result summarizes the cleaning run.
type Result struct {
	Processed int
	Updated   int
	Errors    int
}

// Clean replays docs from the source and rewrites the terms of those whose
// output changed under the current pipeline. Documents that no longer pass
// the pipeline are counted in Errors and left untouched.
func (c *Cleaner) Clean(ctx context.Context) (Result, error) {
	var res Result
	if c.Store == nil || c.Pipeline == nil {
		return res, errors.New("cleaner: invalid configuration")
	}
	src := c.Source
	if src == nil {
		src = &StoreSource{Store: c.Store}
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		doc, ok, err := src.Next(ctx)
		if err != nil {
			return res, fmt.Errorf("cleaner: next document: %w", err)
		}
		if !ok {
			break
		}
		res.Processed++

		processed, _, err := c.Pipeline.Process(ingest.Document{ID: doc.ID, Text: doc.Text, Group: ingest.GroupLabel(doc.Group)})
		if err != nil {
			log.Printf("Warning: cleaner skipping %s: %v", doc.ID, err)
			res.Errors++
			continue
		}
		if slices.Equal(processed.Terms, doc.Terms) {
			continue
		}

		doc.Terms = processed.Terms
		if err := c.Store.UpsertDocument(ctx, doc); err != nil {
			log.Printf("Warning: cleaner failed to update %s: %v", doc.ID, err)
			res.Errors++
			continue
		}
		res.Updated++
	}

	return res, nil
}

// StoreSource iterates the documents of a store, optionally restricted to
// one group. The listing is taken on the first call to Next.
type StoreSource struct {
	Store store.Store
	Group string

	docs   []store.Document
	loaded bool
	idx    int
}

// Next returns the next document, or false when the listing is exhausted.
func (s *StoreSource) Next(ctx context.Context) (store.Document, bool, error) {
	if !s.loaded {
		docs, err := s.Store.ListDocuments(ctx, s.Group, 0)
		if err != nil {
			return store.Document{}, false, err
		}
		s.docs, s.loaded = docs, true
	}
	if s.idx >= len(s.docs) {
		return store.Document{}, false, nil
	}
	d := s.docs[s.idx]
	s.idx++
	return d, true, nil
}
