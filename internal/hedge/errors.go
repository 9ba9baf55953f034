package hedge

import "fmt"

// RetrievalError wraps a failure while fetching positions or prices from
// an external source. The owning task records it and moves on; the last
// published cache entry stays untouched.
type RetrievalError struct {
	Source string // "onchain", "pricefeed", "sample"
	Op     string
	Err    error
}

func NewRetrievalError(source, op string, err error) *RetrievalError {
	return &RetrievalError{Source: source, Op: op, Err: err}
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
