package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrEmptyVocabulary  = errors.New("empty vocabulary")
	ErrNumeric          = errors.New("numeric instability")
	ErrNotConverged     = errors.New("log-likelihood not stabilized")
)
