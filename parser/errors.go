package parser

import (
	"errors"
	"fmt"
)

// ErrUnsupportedQuery matches every *UnsupportedQueryError.
var ErrUnsupportedQuery = errors.New("unsupported query")

// UnsupportedQueryError reports text that falls outside the supported dialect or that
// names schema elements the database does not know.
type UnsupportedQueryError struct {
	// Text is the complete query that was rejected.
	Text string
	// Offset is the byte offset of the offending token.
	Offset int
	Reason string
}

func (e *UnsupportedQueryError) Error() string {
	return fmt.Sprintf("unsupported query at offset %d: %s", e.Offset, e.Reason)
}

func (e *UnsupportedQueryError) Is(target error) bool {
	return target == ErrUnsupportedQuery
}

// Fragment returns the text around the offending offset, for display.
func (e *UnsupportedQueryError) Fragment() string {
	start, end := e.Offset-15, e.Offset+15
	if start < 0 {
		start = 0
	}
	if end > len(e.Text) {
		end = len(e.Text)
	}
	if start > end {
		return ""
	}
	return e.Text[start:end]
}
