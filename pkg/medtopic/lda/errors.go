package lda

import (
	"fmt"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

// ConfigError reports an invalid training parameter. It is returned before
// any document is read.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("lda: %s = %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return internalerr.ErrInvalidConfig }

// VocabularyError reports a corpus with no terms or no documents.
type VocabularyError struct {
	Docs  int
	Terms int
}

func (e *VocabularyError) Error() string {
	return fmt.Sprintf("lda: cannot train on %d documents over %d terms", e.Docs, e.Terms)
}

func (e *VocabularyError) Unwrap() error { return internalerr.ErrEmptyVocabulary }

// NumericError reports a conditional probability that is NaN, infinite or
// negative. Checkpoint holds the model estimated from the last completed
// sweep, or from the seeded initial assignment (Iterations 0) when the fault
// happened during the first sweep.
type NumericError struct {
	Sweep      int
	Doc        string
	Pos        int
	Topic      int
	Value      float64
	Checkpoint *Model
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("lda: sweep %d, document %s, token %d: conditional for topic %d is %v",
		e.Sweep, e.Doc, e.Pos, e.Topic, e.Value)
}

func (e *NumericError) Unwrap() error { return internalerr.ErrNumeric }

// ConvergenceWarning is a non-fatal diagnostic: the log-likelihood still
// moved by more than the configured tolerance over the last interval.
type ConvergenceWarning struct {
	Sweep     int
	Previous  float64
	Last      float64
	Tolerance float64
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("lda: log-likelihood changed from %.4f to %.4f by sweep %d (tolerance %g)",
		w.Previous, w.Last, w.Sweep, w.Tolerance)
}

func (w *ConvergenceWarning) Unwrap() error { return internalerr.ErrNotConverged }

// EmptyDocumentWarning notes a document that had no retained tokens and was
// given a uniform topic distribution.
type EmptyDocumentWarning struct {
	Doc string
}

func (w *EmptyDocumentWarning) Error() string {
	return fmt.Sprintf("lda: document %s has no tokens; topic distribution is uniform", w.Doc)
}

func (w *EmptyDocumentWarning) Unwrap() error { return internalerr.ErrInvalidInput }
