package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	grp TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	added_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS documents_grp ON documents(grp);

CREATE TABLE IF NOT EXISTS document_terms (
	doc_id TEXT NOT NULL,
	pos INTEGER NOT NULL,
	term TEXT NOT NULL,
	PRIMARY KEY(doc_id, pos),
	FOREIGN KEY(doc_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS models (
	id TEXT PRIMARY KEY,
	k INTEGER NOT NULL,
	v INTEGER NOT NULL,
	n INTEGER NOT NULL,
	alpha REAL NOT NULL,
	eta REAL NOT NULL,
	seed INTEGER NOT NULL,
	iterations INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS model_terms (
	model_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	term TEXT NOT NULL,
	PRIMARY KEY(model_id, idx),
	FOREIGN KEY(model_id) REFERENCES models(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS model_docs (
	model_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	doc_id TEXT NOT NULL,
	PRIMARY KEY(model_id, idx),
	FOREIGN KEY(model_id) REFERENCES models(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS model_beta (
	model_id TEXT NOT NULL,
	topic INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY(model_id, topic),
	FOREIGN KEY(model_id) REFERENCES models(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS model_gamma (
	model_id TEXT NOT NULL,
	doc INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY(model_id, doc),
	FOREIGN KEY(model_id) REFERENCES models(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS cards (
	id TEXT PRIMARY KEY,
	model_id TEXT NOT NULL,
	topic INTEGER NOT NULL,
	title TEXT,
	bullets TEXT,
	score_json TEXT,
	FOREIGN KEY(model_id) REFERENCES models(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS stoplist (
	token TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS phrases (
	phrase TEXT PRIMARY KEY,
	canonical TEXT NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertDocument inserts or replaces a document and its terms
func (s *sqliteStore) UpsertDocument(ctx context.Context, d store.Document) error {
	if d.ID == "" {
		return fmt.Errorf("%w: document without id", internalerr.ErrInvalidInput)
	}
	if d.AddedAt.IsZero() {
		d.AddedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO documents (id, grp, text, added_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	grp=excluded.grp,
	text=excluded.text,
	added_at=excluded.added_at;
`
	if _, err := tx.ExecContext(ctx, stmt, d.ID, d.Group, d.Text, d.AddedAt.UnixNano()); err != nil {
		return err
	}
	if err := replaceDocTerms(ctx, tx, d.ID, d.Terms); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceDocTerms(ctx context.Context, tx *sql.Tx, docID string, terms []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_terms WHERE doc_id=?`, docID); err != nil {
		return err
	}
	if len(terms) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO document_terms (doc_id, pos, term) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for pos, term := range terms {
		if _, err := stmt.ExecContext(ctx, docID, pos, term); err != nil {
			return err
		}
	}
	return nil
}

// GetDocument returns a document by ID
func (s *sqliteStore) GetDocument(ctx context.Context, id string) (store.Document, error) {
	var (
		d       store.Document
		addedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, grp, text, added_at FROM documents WHERE id=?`, id).
		Scan(&d.ID, &d.Group, &d.Text, &addedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, fmt.Errorf("document %q: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Document{}, err
	}
	d.AddedAt = time.Unix(0, addedAt).UTC()

	d.Terms, err = s.loadStringColumn(ctx, `SELECT term FROM document_terms WHERE doc_id=? ORDER BY pos`, id)
	if err != nil {
		return store.Document{}, err
	}
	return d, nil
}

// ListDocuments returns documents ordered by ID, optionally filtered by group
func (s *sqliteStore) ListDocuments(ctx context.Context, group string, limit int) ([]store.Document, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}

	query := `SELECT id FROM documents ORDER BY id LIMIT ?`
	args := []interface{}{limit}
	if group != "" {
		query = `SELECT id FROM documents WHERE grp=? ORDER BY id LIMIT ?`
		args = []interface{}{group, limit}
	}

	ids, err := s.loadStringColumn(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	docs := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		d, err := s.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// SaveModel validates and stores a model artifact, replacing any model
// with the same ID
func (s *sqliteStore) SaveModel(ctx context.Context, a store.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	h := a.Header
	if err := deleteModel(ctx, tx, h.ID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO models (id, k, v, n, alpha, eta, seed, iterations, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, h.ID, h.K, h.V, h.N, h.Alpha, h.Eta, int64(h.Seed), h.Iterations, h.CreatedAt.UnixNano())
	if err != nil {
		return err
	}

	if err := insertStrings(ctx, tx, `INSERT INTO model_terms (model_id, idx, term) VALUES (?, ?, ?)`, h.ID, a.Vocabulary); err != nil {
		return err
	}
	if err := insertStrings(ctx, tx, `INSERT INTO model_docs (model_id, idx, doc_id) VALUES (?, ?, ?)`, h.ID, a.DocIDs); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, `INSERT INTO model_beta (model_id, topic, data) VALUES (?, ?, ?)`, h.ID, a.Beta); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, `INSERT INTO model_gamma (model_id, doc, data) VALUES (?, ?, ?)`, h.ID, a.Gamma); err != nil {
		return err
	}

	return tx.Commit()
}

func insertStrings(ctx context.Context, tx *sql.Tx, query, modelID string, values []string) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, modelID, i, v); err != nil {
			return err
		}
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, query, modelID string, rows [][]float64) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, modelID, i, encodeRow(row)); err != nil {
			return err
		}
	}
	return nil
}

// encodeRow packs a row as little-endian IEEE 754 doubles so that values
// round trip bit for bit.
func encodeRow(row []float64) []byte {
	buf := make([]byte, 8*len(row))
	for i, v := range row {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeRow(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("%w: matrix row of %d bytes", internalerr.ErrInvalidInput, len(buf))
	}
	row := make([]float64, len(buf)/8)
	for i := range row {
		row[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return row, nil
}

// LoadModel reads a model artifact and validates it
func (s *sqliteStore) LoadModel(ctx context.Context, id string) (store.Artifact, error) {
	var (
		a       store.Artifact
		seed    int64
		created int64
	)
	h := &a.Header
	err := s.db.QueryRowContext(ctx, `
SELECT id, k, v, n, alpha, eta, seed, iterations, created_at FROM models WHERE id=?
`, id).Scan(&h.ID, &h.K, &h.V, &h.N, &h.Alpha, &h.Eta, &seed, &h.Iterations, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Artifact{}, fmt.Errorf("model %q: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Artifact{}, err
	}
	h.Seed = uint64(seed)
	h.CreatedAt = time.Unix(0, created).UTC()

	if a.Vocabulary, err = s.loadStringColumn(ctx, `SELECT term FROM model_terms WHERE model_id=? ORDER BY idx`, id); err != nil {
		return store.Artifact{}, err
	}
	if a.DocIDs, err = s.loadStringColumn(ctx, `SELECT doc_id FROM model_docs WHERE model_id=? ORDER BY idx`, id); err != nil {
		return store.Artifact{}, err
	}
	if a.Beta, err = s.loadRows(ctx, `SELECT data FROM model_beta WHERE model_id=? ORDER BY topic`, id); err != nil {
		return store.Artifact{}, err
	}
	if a.Gamma, err = s.loadRows(ctx, `SELECT data FROM model_gamma WHERE model_id=? ORDER BY doc`, id); err != nil {
		return store.Artifact{}, err
	}

	if err := a.Validate(); err != nil {
		return store.Artifact{}, fmt.Errorf("model %q: %w", id, err)
	}
	return a, nil
}

// ListModels returns model headers, newest first
func (s *sqliteStore) ListModels(ctx context.Context) ([]store.Header, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, k, v, n, alpha, eta, seed, iterations, created_at
FROM models
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var headers []store.Header
	for rows.Next() {
		var (
			h       store.Header
			seed    int64
			created int64
		)
		if err := rows.Scan(&h.ID, &h.K, &h.V, &h.N, &h.Alpha, &h.Eta, &seed, &h.Iterations, &created); err != nil {
			return nil, err
		}
		h.Seed = uint64(seed)
		h.CreatedAt = time.Unix(0, created).UTC()
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// DeleteModel removes a model with its matrices and cards
func (s *sqliteStore) DeleteModel(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM models WHERE id=?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("model %q: %w", id, internalerr.ErrNotFound)
	}
	if err := deleteModel(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteModel clears child tables explicitly; foreign key enforcement is a
// per-connection setting.
func deleteModel(ctx context.Context, tx *sql.Tx, id string) error {
	for _, tbl := range []string{"cards", "model_terms", "model_docs", "model_beta", "model_gamma"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE model_id=?`, tbl), id); err != nil {
			return err
		}
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM models WHERE id=?`, id)
	return err
}

// UpsertCard inserts or updates a topic card
func (s *sqliteStore) UpsertCard(ctx context.Context, c store.Card) error {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM models WHERE id=?`, c.ModelID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("card %s references model %q: %w", c.ID, c.ModelID, internalerr.ErrNotFound)
	}

	bulletsJSON, err := json.Marshal(c.Bullets)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO cards (id, model_id, topic, title, bullets, score_json)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	model_id=excluded.model_id,
	topic=excluded.topic,
	title=excluded.title,
	bullets=excluded.bullets,
	score_json=excluded.score_json;
`, c.ID, c.ModelID, c.Topic, c.Title, string(bulletsJSON), c.ScoreJSON)
	return err
}

// GetCardsByModel returns the cards of a model ordered by topic
func (s *sqliteStore) GetCardsByModel(ctx context.Context, modelID string) ([]store.Card, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, model_id, topic, title, bullets, score_json
FROM cards
WHERE model_id=?
ORDER BY topic, id
`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []store.Card
	for rows.Next() {
		var c store.Card
		var bulletsJSON string
		if err := rows.Scan(&c.ID, &c.ModelID, &c.Topic, &c.Title, &bulletsJSON, &c.ScoreJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(bulletsJSON), &c.Bullets); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// UpsertStoplist replaces the stopword set in a single transaction.
func (s *sqliteStore) UpsertStoplist(ctx context.Context, tokens []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stoplist`); err != nil {
		return err
	}

	if len(tokens) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO stoplist (token) VALUES (?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, tok := range tokens {
			if _, err := stmt.ExecContext(ctx, tok); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// Stoplist returns the stopwords in lexical order.
func (s *sqliteStore) Stoplist(ctx context.Context) ([]string, error) {
	return s.loadStringColumn(ctx, `SELECT token FROM stoplist ORDER BY token`)
}

// UpsertPhrase adds or replaces a phrase dictionary entry.
func (s *sqliteStore) UpsertPhrase(ctx context.Context, phrase, canonical string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO phrases (phrase, canonical) VALUES (?, ?)
ON CONFLICT(phrase) DO UPDATE SET canonical=excluded.canonical;
`, phrase, canonical)
	return err
}

// Phrases returns dictionary entries ordered by phrase.
func (s *sqliteStore) Phrases(ctx context.Context) ([]store.PhraseData, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phrase, canonical FROM phrases ORDER BY phrase`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []store.PhraseData
	for rows.Next() {
		var e store.PhraseData
		if err := rows.Scan(&e.Phrase, &e.Canonical); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *sqliteStore) loadStringColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *sqliteStore) loadRows(ctx context.Context, query string, args ...interface{}) ([][]float64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]float64
	for rows.Next() {
		var buf []byte
		if err := rows.Scan(&buf); err != nil {
			return nil, err
		}
		row, err := decodeRow(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
