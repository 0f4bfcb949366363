package matching

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned by Cosine when the two vectors have
// different lengths. A single comparison failing this way scores 0 and the
// ranking pass continues.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ErrNoQueryText indicates the caller supplied an empty or whitespace-only
// query document.
var ErrNoQueryText = errors.New("no query text supplied")

// MatchingError is returned when neither the embedding nor the lexical path
// could produce any score for a ranking pass.
type MatchingError struct {
	Reason string
	Err    error
}

func (e *MatchingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("matching failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("matching failed: %s", e.Reason)
}

func (e *MatchingError) Unwrap() error {
	return e.Err
}
