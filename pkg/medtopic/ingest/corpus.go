package ingest

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

// ProcessCorpus runs every document through the pipeline using up to workers
// goroutines (0 means GOMAXPROCS). Documents are independent; each worker only
// writes its own result slot, so output order always equals input order.
//
// Malformed documents and repeated ids are skipped and reported as warnings.
// Only context cancellation aborts the run.
func (p *Pipeline) ProcessCorpus(ctx context.Context, docs []Document, workers int) ([]ProcessedDoc, []Warning, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var warnings []Warning
	seen := make(map[string]struct{}, len(docs))
	valid := make([]Document, 0, len(docs))
	for i, d := range docs {
		if err := d.Validate(); err != nil {
			w := Warning{DocID: d.ID, Err: fmt.Errorf("record %d: %w", i, err)}
			log.Printf("Warning: skipping %v", w)
			warnings = append(warnings, w)
			continue
		}
		if _, dup := seen[d.ID]; dup {
			w := Warning{DocID: d.ID, Err: fmt.Errorf("record %d: %w: document id", i, internalerr.ErrDuplicate)}
			log.Printf("Warning: skipping %v", w)
			warnings = append(warnings, w)
			continue
		}
		seen[d.ID] = struct{}{}
		valid = append(valid, d)
	}

	results := make([]ProcessedDoc, len(valid))
	docWarnings := make([][]Warning, len(valid))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range valid {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			processed, warns, err := p.Process(valid[i])
			if err != nil {
				return fmt.Errorf("process %q: %w", valid[i].ID, err)
			}
			results[i] = processed
			docWarnings[i] = warns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, warnings, err
	}

	for _, warns := range docWarnings {
		warnings = append(warnings, warns...)
	}
	return results, warnings, nil
}
