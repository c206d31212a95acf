package store

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

// rowTolerance bounds how far a probability row may sum away from 1.
const rowTolerance = 1e-6

// Header describes a fitted topic model.
type Header struct {
	ID         string    `json:"id"`
	K          int       `json:"k"`
	V          int       `json:"v"`
	N          int       `json:"n"`
	Alpha      float64   `json:"alpha"`
	Eta        float64   `json:"eta"`
	Seed       uint64    `json:"seed"`
	Iterations int       `json:"iterations"`
	CreatedAt  time.Time `json:"created_at"`
}

// Artifact is the persisted form of a topic model. Beta rows are ordered by
// topic index, Gamma rows by document id ascending.
type Artifact struct {
	Header     Header      `json:"header"`
	Vocabulary []string    `json:"vocabulary"`
	DocIDs     []string    `json:"doc_ids"`
	Beta       [][]float64 `json:"beta"`  // K×V
	Gamma      [][]float64 `json:"gamma"` // N×K
}

// Validate checks dimensions and that every probability row sums to 1.
func (a *Artifact) Validate() error {
	h := a.Header
	if h.ID == "" {
		return fmt.Errorf("%w: artifact has no id", internalerr.ErrInvalidInput)
	}
	if h.K <= 0 || h.V <= 0 || h.N <= 0 {
		return fmt.Errorf("%w: artifact dimensions K=%d V=%d N=%d", internalerr.ErrInvalidInput, h.K, h.V, h.N)
	}
	if len(a.Vocabulary) != h.V {
		return fmt.Errorf("%w: vocabulary has %d terms, header says %d", internalerr.ErrInvalidInput, len(a.Vocabulary), h.V)
	}
	if len(a.DocIDs) != h.N {
		return fmt.Errorf("%w: %d document ids, header says %d", internalerr.ErrInvalidInput, len(a.DocIDs), h.N)
	}
	for i := 1; i < len(a.DocIDs); i++ {
		if a.DocIDs[i-1] >= a.DocIDs[i] {
			return fmt.Errorf("%w: document ids not strictly ascending at %d", internalerr.ErrInvalidInput, i)
		}
	}
	if err := checkRows("beta", a.Beta, h.K, h.V); err != nil {
		return err
	}
	return checkRows("gamma", a.Gamma, h.N, h.K)
}

func checkRows(name string, rows [][]float64, n, width int) error {
	if len(rows) != n {
		return fmt.Errorf("%w: %s has %d rows, want %d", internalerr.ErrInvalidInput, name, len(rows), n)
	}
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("%w: %s row %d has %d columns, want %d", internalerr.ErrInvalidInput, name, i, len(row), width)
		}
		var sum float64
		for _, p := range row {
			if math.IsNaN(p) || p < 0 {
				return fmt.Errorf("%w: %s row %d holds %v", internalerr.ErrInvalidInput, name, i, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > rowTolerance {
			return fmt.Errorf("%w: %s row %d sums to %v", internalerr.ErrInvalidInput, name, i, sum)
		}
	}
	return nil
}

// WriteJSON encodes the artifact as indented JSON.
func WriteJSON(w io.Writer, a Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// ReadJSON decodes and validates an artifact.
func ReadJSON(r io.Reader) (Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return Artifact{}, err
	}
	return a, nil
}
