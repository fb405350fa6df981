package document

import (
	"context"
	"sort"

	"github.com/kasuganosora/historystore/pkg/value"
)

// MemoryDocument presents an in-memory row slice as a Document. It is the
// adapter the archive facade's Checkout and Apply build, and the one the
// other adapters' SortedBy results are returned as; sorting is done with an
// in-memory sort rather than external merge-sort.
type MemoryDocument struct {
	cols []string
	rows []memRow
}

type memRow struct {
	position int64
	key      value.Scalar
	values   []value.Scalar
}

// NewMemoryDocument builds a MemoryDocument from column names and row
// values. keys may be nil for un-keyed archives, in which case the row index
// is used as the key (spec §4.4, "Key semantics").
func NewMemoryDocument(cols []string, rowValues [][]value.Scalar, keys []value.Scalar) *MemoryDocument {
	rows := make([]memRow, len(rowValues))
	for i, vals := range rowValues {
		k := value.Int(int64(i))
		if keys != nil {
			k = keys[i]
		}
		rows[i] = memRow{position: int64(i), key: k, values: vals}
	}
	return &MemoryDocument{cols: cols, rows: rows}
}

func (d *MemoryDocument) Columns() []string { return d.cols }

func (d *MemoryDocument) Iterate(ctx context.Context) (Iterator, error) {
	return &memoryIterator{doc: d}, nil
}

func (d *MemoryDocument) SortedBy(ctx context.Context, columns []string) (Document, error) {
	sorted := make([]memRow, len(d.rows))
	copy(sorted, d.rows)

	if len(columns) == 0 {
		sort.SliceStable(sorted, func(i, j int) bool {
			return value.Less(sorted[i].key, sorted[j].key)
		})
		return &MemoryDocument{cols: d.cols, rows: sorted}, nil
	}

	idxs := make([]int, len(columns))
	for i, c := range columns {
		idx := ColumnIndex(d.cols, c)
		if idx < 0 {
			return nil, fail(ErrSchema, "key column %q not found", c)
		}
		idxs[i] = idx
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		for _, idx := range idxs {
			a, b := sorted[i].values[idx], sorted[j].values[idx]
			if value.Equal(a, b) {
				continue
			}
			return value.Less(a, b)
		}
		return false
	})
	// The caller asked to sort by the key columns, so the emitted Row.Key
	// becomes the key value itself rather than whatever key the document was
	// built with (spec §4.2: the merge engine matches on this field). A
	// single key column maps directly; a composite key becomes a Tuple
	// scalar in declared primary-key order (spec §4.4).
	for i := range sorted {
		sorted[i].key = keyFor(sorted[i].values, idxs)
	}
	return &MemoryDocument{cols: d.cols, rows: sorted}, nil
}

// newSortedMemoryDocument builds a MemoryDocument directly from already-key-
// sorted rows, preserving each row's own Position rather than re-deriving it
// from the sorted order (spec §3/§4.2: position reflects a row's place in
// the originally-committed snapshot, not the merge-key sort order).
func newSortedMemoryDocument(cols []string, rows []Row) *MemoryDocument {
	out := make([]memRow, len(rows))
	for i, r := range rows {
		out[i] = memRow{position: r.Position, key: r.Key, values: r.Values}
	}
	return &MemoryDocument{cols: cols, rows: out}
}

// keyFor builds the Row.Key for a sort over key columns idxs: the column's
// own scalar for a single key column, or a composite Tuple scalar in
// declared primary-key order for a multi-column key (spec §4.4, "a list of
// column names").
func keyFor(values []value.Scalar, idxs []int) value.Scalar {
	if len(idxs) == 1 {
		return values[idxs[0]]
	}
	parts := make([]value.Scalar, len(idxs))
	for i, idx := range idxs {
		parts[i] = values[idx]
	}
	return value.Tuple(parts)
}

func (d *MemoryDocument) Close() error { return nil }

type memoryIterator struct {
	doc *MemoryDocument
	pos int
}

func (it *memoryIterator) Next(ctx context.Context) (Row, bool, error) {
	if it.pos >= len(it.doc.rows) {
		return Row{}, false, nil
	}
	r := it.doc.rows[it.pos]
	it.pos++
	return Row{Position: r.position, Key: r.key, Values: r.values}, true, nil
}

func (it *memoryIterator) Close() error { return nil }
