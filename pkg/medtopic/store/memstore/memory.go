package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]store.Document
	models   map[string]store.Artifact
	cards    map[string]store.Card
	stoplist map[string]struct{}
	phrases  map[string]string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		docs:     make(map[string]store.Document),
		models:   make(map[string]store.Artifact),
		cards:    make(map[string]store.Card),
		stoplist: make(map[string]struct{}),
		phrases:  make(map[string]string),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertDocument inserts or replaces a document, keyed by ID.
func (s *Store) UpsertDocument(ctx context.Context, d store.Document) error {
	if d.ID == "" {
		return fmt.Errorf("%w: document without id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.AddedAt.IsZero() {
		d.AddedAt = time.Now().UTC()
	}
	s.docs[d.ID] = copyDoc(d)
	return nil
}

// GetDocument returns a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if doc, ok := s.docs[id]; ok {
		return copyDoc(doc), nil
	}
	return store.Document{}, fmt.Errorf("document %q: %w", id, internalerr.ErrNotFound)
}

// ListDocuments returns documents ordered by ID, optionally filtered by
// group. limit <= 0 returns all of them.
func (s *Store) ListDocuments(ctx context.Context, group string, limit int) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if group != "" && d.Group != group {
			continue
		}
		out = append(out, copyDoc(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveModel validates and stores a model artifact. Saving over an existing
// id replaces the model and drops its cards.
func (s *Store) SaveModel(ctx context.Context, a store.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteCards(a.Header.ID)
	s.models[a.Header.ID] = copyArtifact(a)
	return nil
}

// LoadModel returns a stored model artifact.
func (s *Store) LoadModel(ctx context.Context, id string) (store.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.models[id]
	if !ok {
		return store.Artifact{}, fmt.Errorf("model %q: %w", id, internalerr.ErrNotFound)
	}
	return copyArtifact(a), nil
}

// ListModels returns model headers, newest first.
func (s *Store) ListModels(ctx context.Context) ([]store.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Header, 0, len(s.models))
	for _, a := range s.models {
		out = append(out, a.Header)
	}
	sortHeaders(out)
	return out, nil
}

// DeleteModel removes a model and its cards.
func (s *Store) DeleteModel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[id]; !ok {
		return fmt.Errorf("model %q: %w", id, internalerr.ErrNotFound)
	}
	delete(s.models, id)
	s.deleteCards(id)
	return nil
}

// deleteCards removes the cards of a model. Callers hold s.mu.
func (s *Store) deleteCards(modelID string) {
	for cid, c := range s.cards {
		if c.ModelID == modelID {
			delete(s.cards, cid)
		}
	}
}

// UpsertCard stores a topic card.
func (s *Store) UpsertCard(ctx context.Context, c store.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[c.ModelID]; !ok {
		return fmt.Errorf("card %s references model %q: %w", c.ID, c.ModelID, internalerr.ErrNotFound)
	}
	c.Bullets = append([]string(nil), c.Bullets...)
	s.cards[c.ID] = c
	return nil
}

// GetCardsByModel returns the cards of a model ordered by topic.
func (s *Store) GetCardsByModel(ctx context.Context, modelID string) ([]store.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Card
	for _, c := range s.cards {
		if c.ModelID == modelID {
			c.Bullets = append([]string(nil), c.Bullets...)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpsertStoplist replaces the stopword set.
func (s *Store) UpsertStoplist(ctx context.Context, tokens []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stoplist = make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		s.stoplist[tok] = struct{}{}
	}
	return nil
}

// Stoplist returns the stopwords in lexical order.
func (s *Store) Stoplist(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.stoplist))
	for tok := range s.stoplist {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out, nil
}

// UpsertPhrase adds or replaces a phrase dictionary entry.
func (s *Store) UpsertPhrase(ctx context.Context, phrase, canonical string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phrases[phrase] = canonical
	return nil
}

// Phrases returns dictionary entries ordered by phrase.
func (s *Store) Phrases(ctx context.Context) ([]store.PhraseData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.PhraseData, 0, len(s.phrases))
	for p, c := range s.phrases {
		out = append(out, store.PhraseData{Phrase: p, Canonical: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phrase < out[j].Phrase })
	return out, nil
}

func sortHeaders(hs []store.Header) {
	sort.Slice(hs, func(i, j int) bool {
		if !hs[i].CreatedAt.Equal(hs[j].CreatedAt) {
			return hs[i].CreatedAt.After(hs[j].CreatedAt)
		}
		return hs[i].ID > hs[j].ID
	})
}

func copyDoc(d store.Document) store.Document {
	d.Terms = append([]string(nil), d.Terms...)
	return d
}

func copyArtifact(a store.Artifact) store.Artifact {
	out := a
	out.Vocabulary = append([]string(nil), a.Vocabulary...)
	out.DocIDs = append([]string(nil), a.DocIDs...)
	out.Beta = copyRows(a.Beta)
	out.Gamma = copyRows(a.Gamma)
	return out
}

func copyRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

var _ store.Store = (*Store)(nil)
