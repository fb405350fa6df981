// Package document defines the Document abstraction the merge engine pulls
// snapshot rows from (spec §4.2), and the in-memory, CSV, JSON-lines, and
// Excel adapters that implement it.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/historystore/pkg/value"
)

// ErrDocument is the sentinel base error for malformed Document input.
var ErrDocument = errors.New("document error")

// ErrSchema is the sentinel base error for a missing required key column.
var ErrSchema = errors.New("schema error")

// ErrUnsortedInput is the sentinel base error for a Document claiming an
// ordering it does not actually provide.
var ErrUnsortedInput = errors.New("unsorted input error")

func fail(base error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), base)
}

// Row is one tuple yielded by a Document iterator: its 0-based position in
// the snapshot, its key (primary-key tuple for keyed archives, row index for
// un-keyed), and its values positional with Columns().
type Row struct {
	Position int64
	Key      value.Scalar
	Values   []value.Scalar
}

// Iterator is a lazy sequence of Rows. Next returns io.EOF-equivalent via
// (Row{}, false, nil) at end of stream; a non-nil error aborts iteration.
type Iterator interface {
	Next(ctx context.Context) (Row, bool, error)
	Close() error
}

// Document is the abstraction over a snapshot source that the merge engine
// and archive facade consume. Implementations are tagged variants: in-memory,
// delimited-file-with-external-sort, record-stream (spec §9).
type Document interface {
	// Columns returns the ordered column names, positional with each Row's
	// Values.
	Columns() []string

	// Iterate returns a fresh Iterator over the document's rows.
	Iterate(ctx context.Context) (Iterator, error)

	// SortedBy returns a Document guaranteed to iterate in ascending order
	// of the named columns (spec §4.2). For un-keyed archives callers pass
	// nil to request ordering by row index ascending.
	SortedBy(ctx context.Context, columns []string) (Document, error)

	// Close releases file handles and scratch buffers. Safe to call more
	// than once.
	Close() error
}

// ColumnIndex returns the 0-based index of name in cols, or -1.
func ColumnIndex(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
