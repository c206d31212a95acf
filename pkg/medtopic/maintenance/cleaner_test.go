package maintenance

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/medtopic/pkg/medtopic/ingest"
	"github.com/cognicore/medtopic/pkg/medtopic/stoplist"
	"github.com/cognicore/medtopic/pkg/medtopic/store"
	"github.com/cognicore/medtopic/pkg/medtopic/store/memstore"
)

type fakeSource struct {
	docs []store.Document
	idx  int
	err  error
}

func (f *fakeSource) Next(ctx context.Context) (store.Document, bool, error) {
	if f.err != nil {
		return store.Document{}, false, f.err
	}
	if f.idx >= len(f.docs) {
		return store.Document{}, false, nil
	}
	doc := f.docs[f.idx]
	f.idx++
	return doc, true, nil
}

// failingStore rejects every document write.
type failingStore struct {
	store.Store
}

func (failingStore) UpsertDocument(ctx context.Context, d store.Document) error {
	return errors.New("boom")
}

func newPipeline(t *testing.T, stops ...string) *ingest.Pipeline {
	t.Helper()
	p, err := ingest.NewPipeline(ingest.NewSegmenter(), stoplist.NewSet(stops), ingest.Identity)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestCleanerUpdatesTerms(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	docs := []store.Document{
		{ID: "1", Group: "Urology", Text: "the patient voided", Terms: []string{"the", "patient", "voided"}},
		{ID: "2", Group: "Urology", Text: "patient voided", Terms: []string{"patient", "voided"}},
	}
	for _, d := range docs {
		if err := st.UpsertDocument(ctx, d); err != nil {
			t.Fatalf("UpsertDocument: %v", err)
		}
	}

	cleaner := Cleaner{Store: st, Pipeline: newPipeline(t, "the")}
	res, err := cleaner.Clean(ctx)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if res.Processed != 2 || res.Updated != 1 || res.Errors != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, err := st.GetDocument(ctx, "1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if len(got.Terms) != 2 || got.Terms[0] != "patient" {
		t.Fatalf("store doc not updated: %+v", got)
	}
}

func TestCleanerHandlesStoreErrors(t *testing.T) {
	cleaner := Cleaner{
		Store:    failingStore{memstore.New()},
		Pipeline: newPipeline(t, "foo"),
		Source: &fakeSource{
			docs: []store.Document{{ID: "1", Text: "foo bar", Terms: []string{"foo", "bar"}}},
		},
	}

	res, err := cleaner.Clean(context.Background())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if res.Errors != 1 || res.Updated != 0 {
		t.Fatalf("expected one error, got %+v", res)
	}
}

func TestCleanerSourceError(t *testing.T) {
	cleaner := Cleaner{
		Store:    memstore.New(),
		Pipeline: newPipeline(t),
		Source:   &fakeSource{err: errors.New("disk gone")},
	}
	if _, err := cleaner.Clean(context.Background()); err == nil {
		t.Fatal("expected source error")
	}
}

func TestCleanerInvalidConfig(t *testing.T) {
	if _, err := (&Cleaner{}).Clean(context.Background()); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestStoreSourceGroupFilter(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.UpsertDocument(ctx, store.Document{ID: "a", Group: "Neurology", Text: "seizure"})
	st.UpsertDocument(ctx, store.Document{ID: "b", Group: "Urology", Text: "stent"})

	src := &StoreSource{Store: st, Group: "Urology"}
	d, ok, err := src.Next(ctx)
	if err != nil || !ok || d.ID != "b" {
		t.Fatalf("Next = %+v, %v, %v", d, ok, err)
	}
	if _, ok, _ := src.Next(ctx); ok {
		t.Fatal("expected exhausted source")
	}
}
