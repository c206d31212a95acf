// Package lda fits Latent Dirichlet Allocation topic models by collapsed
// Gibbs sampling over a document-term matrix.
package lda

import (
	"context"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/medtopic/pkg/medtopic/dtm"
)

// Trainer fits models with a fixed configuration.
type Trainer struct {
	cfg    Config
	logger *log.Logger

	afterSweep func(sweep int) // test hook
}

// NewTrainer validates cfg. A zero Workers value means sequential.
func NewTrainer(cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	return &Trainer{cfg: cfg, logger: log.Default()}, nil
}

// SetLogger redirects warnings; nil silences them.
func (t *Trainer) SetLogger(l *log.Logger) {
	t.logger = l
}

// Config returns the effective configuration.
func (t *Trainer) Config() Config { return t.cfg }

func (t *Trainer) warnf(format string, args ...any) {
	if t.logger != nil {
		t.logger.Printf("Warning: "+format, args...)
	}
}

// Fit runs the sampler for the configured number of sweeps. Cancellation is
// checked between sweeps: once at least one sweep has completed the model
// is returned with Diagnostics.StoppedEarly set, otherwise ctx.Err().
func (t *Trainer) Fit(ctx context.Context, m *dtm.Matrix) (*Model, error) {
	if m == nil || m.NumDocs() == 0 || m.NumTerms() == 0 {
		var docs, terms int
		if m != nil {
			docs, terms = m.NumDocs(), m.NumTerms()
		}
		return nil, &VocabularyError{Docs: docs, Terms: terms}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := t.cfg
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	c := newChain(m, cfg.Topics, cfg.Alpha, cfg.Eta, rng)

	var diag Diagnostics
	for d := 0; d < m.NumDocs(); d++ {
		if m.RowSum(d) == 0 {
			w := &EmptyDocumentWarning{Doc: m.DocID(d)}
			diag.Warnings = append(diag.Warnings, w)
			t.warnf("%v", w)
		}
	}

	completed := 0
	for sweep := 1; sweep <= cfg.Iterations; sweep++ {
		if err := ctx.Err(); err != nil {
			if completed == 0 {
				return nil, err
			}
			diag.StoppedEarly = true
			t.warnf("training stopped after %d of %d sweeps: %v", completed, cfg.Iterations, err)
			break
		}

		var f *fault
		if cfg.Workers > 1 {
			f = c.parallelSweep(cfg.Workers, cfg.Seed, sweep)
		} else {
			f = c.sweep(rng)
		}
		if f != nil {
			return nil, t.numericError(m, c, f, sweep, completed)
		}
		c.commit()
		completed = sweep
		if t.afterSweep != nil {
			t.afterSweep(sweep)
		}

		if cfg.LogLikelihoodEvery > 0 && (sweep%cfg.LogLikelihoodEvery == 0 || sweep == cfg.Iterations) {
			diag.LogLikelihood = append(diag.LogLikelihood, LikelihoodPoint{Sweep: sweep, Value: c.logLikelihood()})
		}
	}

	t.checkConvergence(&diag)

	beta, gamma := c.estimate()
	model := t.newModel(m, beta, gamma, completed)
	model.Diagnostics = diag
	return model, nil
}

func (t *Trainer) numericError(m *dtm.Matrix, c *chain, f *fault, sweep, completed int) error {
	err := &NumericError{
		Sweep: sweep,
		Doc:   m.DocID(f.doc),
		Pos:   f.pos,
		Topic: f.topic,
		Value: f.value,
	}
	// before the first sweep completes the committed state is the seeded
	// initial assignment
	beta, gamma := c.restored().estimate()
	err.Checkpoint = t.newModel(m, beta, gamma, completed)
	return err
}

func (t *Trainer) checkConvergence(diag *Diagnostics) {
	ll := diag.LogLikelihood
	if len(ll) < 2 {
		return
	}
	prev, last := ll[len(ll)-2], ll[len(ll)-1]
	change := math.Abs(last.Value - prev.Value)
	if prev.Value != 0 {
		change /= math.Abs(prev.Value)
	}
	if change <= t.cfg.Tolerance {
		diag.Converged = true
		return
	}
	w := &ConvergenceWarning{
		Sweep:     last.Sweep,
		Previous:  prev.Value,
		Last:      last.Value,
		Tolerance: t.cfg.Tolerance,
	}
	diag.Warnings = append(diag.Warnings, w)
	t.warnf("%v", w)
}

func (t *Trainer) newModel(m *dtm.Matrix, beta, gamma [][]float64, sweeps int) *Model {
	model := newModel(ulid.Make().String(), m.Vocabulary(), m.DocIDs(), beta, gamma)
	model.Alpha = t.cfg.Alpha
	model.Eta = t.cfg.Eta
	model.Seed = t.cfg.Seed
	model.Iterations = sweeps
	model.CreatedAt = time.Now().UTC()
	return model
}
