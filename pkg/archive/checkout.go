package archive

import (
	"context"
	"sort"

	"github.com/kasuganosora/historystore/pkg/archiverow"
	"github.com/kasuganosora/historystore/pkg/document"
	"github.com/kasuganosora/historystore/pkg/value"
)

// VersionReader streams a reconstructed version row by row, ordered by each
// row's Position at that version (spec §4.5, "checkout(v)").
type VersionReader struct {
	cols []string
	rows []versionRow
	pos  int
}

type versionRow struct {
	position int
	key      value.Scalar
	values   []value.Scalar
}

// Columns returns the reconstructed version's column names, ordered by
// position.
func (r *VersionReader) Columns() []string { return r.cols }

// Next returns the next row's values, positional with Columns(), or
// (nil, false, nil) at end of stream.
func (r *VersionReader) Next() ([]value.Scalar, bool, error) {
	if r.pos >= len(r.rows) {
		return nil, false, nil
	}
	row := r.rows[r.pos]
	r.pos++
	return row.values, true, nil
}

// CheckoutReader opens a streaming reader over the table reconstructed at
// version v (spec §4.5, "checkout(v)"). The version's rows are collected and
// sorted by position before it returns, then handed out one at a time by
// Next. Checkout wraps the same rows in a Document instead.
func (a *Archive) CheckoutReader(ctx context.Context, v int64) (*VersionReader, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.checkoutReaderLocked(v)
}

func (a *Archive) checkoutReaderLocked(v int64) (*VersionReader, error) {
	if v < 0 || v >= a.nextVersion {
		return nil, errVersionf("version %d does not exist", v)
	}

	cols := a.schema.ColumnsAt(v)
	names := make([]string, len(cols))
	for i, c := range cols {
		n, _ := c.NameAt(v)
		names[i] = n
	}

	var rows []versionRow
	for _, row := range a.allRows {
		if !row.Alive(v) {
			continue
		}
		pos, ok := row.PositionAt(v)
		if !ok {
			continue
		}
		vals := make([]value.Scalar, len(cols))
		for i, c := range cols {
			vals[i] = row.CellAt(c.ColID, v)
		}
		key, _ := row.KeyAt(v)
		rows = append(rows, versionRow{position: pos, key: key, values: vals})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].position < rows[j].position })

	return &VersionReader{cols: names, rows: rows}, nil
}

// Checkout materializes version v as a Document (spec §4.5), suitable for
// feeding straight back into Commit to apply further changes on top of it.
func (a *Archive) Checkout(ctx context.Context, v int64) (document.Document, error) {
	a.mu.Lock()
	r, err := a.checkoutReaderLocked(v)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rowValues := make([][]value.Scalar, len(r.rows))
	keys := make([]value.Scalar, len(r.rows))
	for i, row := range r.rows {
		rowValues[i] = row.values
		keys[i] = row.key
	}
	return document.NewMemoryDocument(r.cols, rowValues, keys), nil
}

// RowHistoryReader streams every ArchiveRow the archive has ever created, in
// storage order (ascending RowID), independent of any particular version.
// Each row carries its full key/position/cells MultiVersionValue history,
// including intervals for versions at which the row no longer lives
// (spec §4.5/§6, "reader()" — "row-history iterator... used for provenance
// inspection"). Use Checkout/CheckoutReader to reconstruct a single version
// as a table instead.
type RowHistoryReader struct {
	rows []*archiverow.Row
	pos  int
}

// Next returns the next row in storage order, or (nil, false, nil) at end of
// stream. Callers must treat the returned Row as read-only.
func (r *RowHistoryReader) Next() (*archiverow.Row, bool, error) {
	if r.pos >= len(r.rows) {
		return nil, false, nil
	}
	row := r.rows[r.pos]
	r.pos++
	return row, true, nil
}

// Reader opens a streaming iterator over the raw archive row history,
// unfiltered by version (spec §6, "reader()").
func (a *Archive) Reader(ctx context.Context) (*RowHistoryReader, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := sortedRowIDs(a.allRows)
	rows := make([]*archiverow.Row, len(ids))
	for i, id := range ids {
		rows[i] = a.allRows[id]
	}
	return &RowHistoryReader{rows: rows}, nil
}
