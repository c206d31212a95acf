package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testArtifact(id string, created time.Time) store.Artifact {
	third := 1.0 / 3
	return store.Artifact{
		Header: store.Header{
			ID: id, K: 2, V: 3, N: 2,
			Alpha: 0.1, Eta: 0.01, Seed: math.MaxUint64 - 5, Iterations: 200,
			CreatedAt: created,
		},
		Vocabulary: []string{"lithotomy position", "incision", "murmur"},
		DocIDs:     []string{"doc-1", "doc-2"},
		Beta:       [][]float64{{third, third, 1 - 2*third}, {0.1, 0.2, 0.7}},
		Gamma:      [][]float64{{0.123456789012345, 1 - 0.123456789012345}, {0.5, 0.5}},
	}
}

func TestSchemaCreationIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open database: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := initSchema(ctx, db); err != nil {
			t.Fatalf("initSchema iteration %d: %v", i, err)
		}
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&count)
	if err != nil {
		t.Fatalf("Count tables: %v", err)
	}
	expected := 10 // documents, document_terms, models, model_terms, model_docs, model_beta, model_gamma, cards, stoplist, phrases
	if count != expected {
		t.Errorf("Expected %d tables, got %d", expected, count)
	}
}

func TestModelRoundTripIsBitExact(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	created := time.Date(2024, 6, 1, 10, 30, 0, 123456789, time.UTC)
	want := testArtifact("01HZMODEL00000000000000000", created)

	if err := st.SaveModel(ctx, want); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	got, err := st.LoadModel(ctx, want.Header.ID)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	gh, wh := got.Header, want.Header
	if !gh.CreatedAt.Equal(wh.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", gh.CreatedAt, wh.CreatedAt)
	}
	gh.CreatedAt, wh.CreatedAt = time.Time{}, time.Time{}
	if gh != wh {
		t.Errorf("header = %+v, want %+v", gh, wh)
	}
	for i, term := range want.Vocabulary {
		if got.Vocabulary[i] != term {
			t.Errorf("term %d = %q, want %q", i, got.Vocabulary[i], term)
		}
	}
	for i, id := range want.DocIDs {
		if got.DocIDs[i] != id {
			t.Errorf("doc %d = %q, want %q", i, got.DocIDs[i], id)
		}
	}
	compare := func(name string, a, b [][]float64) {
		for i := range a {
			for j := range a[i] {
				if math.Float64bits(a[i][j]) != math.Float64bits(b[i][j]) {
					t.Errorf("%s[%d][%d] = %v, want %v", name, i, j, b[i][j], a[i][j])
				}
			}
		}
	}
	compare("beta", want.Beta, got.Beta)
	compare("gamma", want.Gamma, got.Gamma)
}

func TestModelLifecycle(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"m-old", "m-new"} {
		if err := st.SaveModel(ctx, testArtifact(id, t0.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveModel(%s): %v", id, err)
		}
	}

	headers, err := st.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(headers) != 2 || headers[0].ID != "m-new" || headers[1].ID != "m-old" {
		t.Errorf("ListModels = %+v", headers)
	}

	card := store.Card{ID: "card-1", ModelID: "m-old", Topic: 1, Title: "Topic 1: murmur", Bullets: []string{"murmur (0.7000)"}, ScoreJSON: `{"docs":1}`}
	if err := st.UpsertCard(ctx, card); err != nil {
		t.Fatalf("UpsertCard: %v", err)
	}
	if err := st.UpsertCard(ctx, store.Card{ID: "x", ModelID: "missing"}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("card for unknown model: err = %v", err)
	}
	cards, err := st.GetCardsByModel(ctx, "m-old")
	if err != nil || len(cards) != 1 || cards[0].Bullets[0] != "murmur (0.7000)" {
		t.Fatalf("GetCardsByModel = %+v, %v", cards, err)
	}

	if err := st.DeleteModel(ctx, "m-old"); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}
	if _, err := st.LoadModel(ctx, "m-old"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("deleted model: err = %v", err)
	}
	if cards, _ := st.GetCardsByModel(ctx, "m-old"); len(cards) != 0 {
		t.Errorf("cards survived: %+v", cards)
	}
	if err := st.DeleteModel(ctx, "m-old"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}

	bad := testArtifact("m-bad", t0)
	bad.Gamma[1][0] = 0.9
	if err := st.SaveModel(ctx, bad); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("invalid artifact: err = %v", err)
	}
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	docs := []store.Document{
		{ID: "d2", Group: "Surgery", Text: "Patient placed in lithotomy position.", Terms: []string{"patient", "placed", "lithotomy position"}},
		{ID: "d1", Group: "Cardiology", Text: "Systolic murmur."},
		{ID: "d3", Group: "Surgery", Text: "Incision closed.", Terms: []string{"incision", "closed"}},
	}
	for _, d := range docs {
		if err := st.UpsertDocument(ctx, d); err != nil {
			t.Fatalf("UpsertDocument(%s): %v", d.ID, err)
		}
	}

	got, err := st.GetDocument(ctx, "d2")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Group != "Surgery" || len(got.Terms) != 3 || got.Terms[2] != "lithotomy position" || got.AddedAt.IsZero() {
		t.Errorf("GetDocument = %+v", got)
	}

	updated := docs[0]
	updated.Terms = []string{"patient"}
	if err := st.UpsertDocument(ctx, updated); err != nil {
		t.Fatalf("UpsertDocument update: %v", err)
	}
	got, _ = st.GetDocument(ctx, "d2")
	if len(got.Terms) != 1 {
		t.Errorf("terms not replaced: %v", got.Terms)
	}

	surgery, err := st.ListDocuments(ctx, "Surgery", 0)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(surgery) != 2 || surgery[0].ID != "d2" || surgery[1].ID != "d3" {
		t.Errorf("Surgery docs = %+v", surgery)
	}
	all, _ := st.ListDocuments(ctx, "", 2)
	if len(all) != 2 || all[0].ID != "d1" {
		t.Errorf("limited docs = %+v", all)
	}

	if _, err := st.GetDocument(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("missing document: err = %v", err)
	}
}

func TestStoplistAndPhrases(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.UpsertStoplist(ctx, []string{"old"}); err != nil {
		t.Fatalf("UpsertStoplist: %v", err)
	}
	if err := st.UpsertStoplist(ctx, []string{"the", "patient", "the"}); err != nil {
		t.Fatalf("UpsertStoplist: %v", err)
	}
	stops, err := st.Stoplist(ctx)
	if err != nil {
		t.Fatalf("Stoplist: %v", err)
	}
	if len(stops) != 2 || stops[0] != "patient" || stops[1] != "the" {
		t.Errorf("Stoplist = %v", stops)
	}

	st.UpsertPhrase(ctx, "cabg", "coronary bypass")
	st.UpsertPhrase(ctx, "cabg", "coronary artery bypass graft")
	phrases, err := st.Phrases(ctx)
	if err != nil {
		t.Fatalf("Phrases: %v", err)
	}
	if len(phrases) != 1 || phrases[0].Canonical != "coronary artery bypass graft" {
		t.Errorf("Phrases = %+v", phrases)
	}
}

func TestDecodeRowRejectsTruncatedBlob(t *testing.T) {
	if _, err := decodeRow(make([]byte, 12)); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("err = %v", err)
	}
	row, err := decodeRow(encodeRow([]float64{math.Pi, -0.0, math.SmallestNonzeroFloat64}))
	if err != nil || row[0] != math.Pi || math.Float64bits(row[1]) != math.Float64bits(-0.0) {
		t.Errorf("decodeRow = %v, %v", row, err)
	}
}
