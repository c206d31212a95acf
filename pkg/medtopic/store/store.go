package store

import (
	"context"
	"time"
)

// Store is the main interface for persisting corpora and fitted topic models
type Store interface {
	Close() error

	// Documents
	UpsertDocument(ctx context.Context, d Document) error
	GetDocument(ctx context.Context, id string) (Document, error)
	ListDocuments(ctx context.Context, group string, limit int) ([]Document, error)

	// Models
	SaveModel(ctx context.Context, a Artifact) error
	LoadModel(ctx context.Context, id string) (Artifact, error)
	ListModels(ctx context.Context) ([]Header, error)
	DeleteModel(ctx context.Context, id string) error

	// Cards
	UpsertCard(ctx context.Context, c Card) error
	GetCardsByModel(ctx context.Context, modelID string) ([]Card, error)

	// Stoplist and phrase dictionary, written back by corpus tuning
	UpsertStoplist(ctx context.Context, tokens []string) error
	Stoplist(ctx context.Context) ([]string, error)
	UpsertPhrase(ctx context.Context, phrase, canonical string) error
	Phrases(ctx context.Context) ([]PhraseData, error)
}

// Document represents a stored clinical document
type Document struct {
	ID      string
	Group   string
	Text    string
	Terms   []string // retained terms after preprocessing
	AddedAt time.Time
}

// Card represents a stored topic card
type Card struct {
	ID        string
	ModelID   string
	Topic     int
	Title     string
	Bullets   []string
	ScoreJSON string
}

// PhraseData holds a single phrase dictionary entry.
type PhraseData struct {
	Phrase    string
	Canonical string
}
