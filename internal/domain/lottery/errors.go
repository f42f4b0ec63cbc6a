package lottery

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotAvailable means the source confirms there is no draw for the date and region.
	ErrNotAvailable = errors.New("draw not available")
	// ErrFetch is a transport failure; it is retried a bounded number of times.
	ErrFetch = errors.New("fetch failed")
	// ErrParse means the payload was unrecognised or malformed; it is never retried.
	ErrParse = errors.New("parse failed")
	// ErrWriteConflict is a datastore constraint violation outside the upsert path.
	ErrWriteConflict = errors.New("write conflict")
)

// ParseError names the offending field of a rejected payload.
type ParseError struct {
	Field      string
	Reason     string
	PayloadRef string
}

func NewParseError(field, format string, args ...any) *ParseError {
	return &ParseError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return "parse: " + e.Reason
	}
	return fmt.Sprintf("parse %s: %s", e.Field, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// WithRef attaches the raw payload reference the error was produced from.
func (e *ParseError) WithRef(ref string) *ParseError {
	cp := *e
	cp.PayloadRef = ref
	return &cp
}
