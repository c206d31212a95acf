package ingest

import (
	"fmt"
	"strings"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

// GroupLabel is an opaque tag attached to a document (e.g. medical specialty).
// It is only used for post-hoc grouping and is never interpreted by the trainer.
type GroupLabel string

// Document is one raw clinical document as supplied by a corpus loader.
type Document struct {
	ID    string
	Text  string
	Group GroupLabel
}

// Validate checks if the document has required fields
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: document id is required", internalerr.ErrInvalidInput)
	}

	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("%w: document %q has no text", internalerr.ErrInvalidInput, d.ID)
	}

	return nil
}

// Token is a normalized term with its position in the source document.
type Token struct {
	DocID string
	Pos   int
	Term  string
}
