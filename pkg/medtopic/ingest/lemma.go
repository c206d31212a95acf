package ingest

import (
	"fmt"
	"strings"

	"github.com/cognicore/medtopic/pkg/medtopic/internalerr"
)

// Lemmatizer maps a token to its canonical base form. Implementations must be
// deterministic and context free. A general purpose lemmatizer is expected to
// leave specialised clinical vocabulary and abbreviations mostly untouched.
type Lemmatizer interface {
	Lemmatize(token string) (string, error)
}

// LemmatizerFunc adapts a plain function to the Lemmatizer interface.
type LemmatizerFunc func(token string) (string, error)

// Lemmatize calls f(token).
func (f LemmatizerFunc) Lemmatize(token string) (string, error) {
	return f(token)
}

// Identity returns tokens unchanged. Used when no lemmatizer is configured.
var Identity Lemmatizer = LemmatizerFunc(func(token string) (string, error) {
	return token, nil
})

// ErrMalformedToken is returned by lemmatizers for tokens they cannot handle.
var ErrMalformedToken = fmt.Errorf("%w: malformed token", internalerr.ErrInvalidInput)

// lemmatize applies l and normalizes the result. An empty lemma is reported
// as a malformed token so that the caller drops it.
func lemmatize(l Lemmatizer, token string) (string, error) {
	lemma, err := l.Lemmatize(token)
	if err != nil {
		return "", fmt.Errorf("lemmatize %q: %w", token, err)
	}
	lemma = strings.ToLower(strings.TrimSpace(lemma))
	if lemma == "" {
		return "", fmt.Errorf("lemmatize %q: %w", token, ErrMalformedToken)
	}
	return lemma, nil
}
