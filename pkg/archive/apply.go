package archive

import (
	"context"

	"github.com/kasuganosora/historystore/pkg/archiverow"
	"github.com/kasuganosora/historystore/pkg/document"
	"github.com/kasuganosora/historystore/pkg/value"
)

// Operator transforms the rows of the current checkout into the rows of the
// next version. It receives the checked-out rows in position order and
// returns the replacement set in whatever order it likes; Apply renumbers
// the result sequentially from 0 (spec §9, Open Question 3: "a duplicate or
// out-of-order position returned by an operator is renumbered rather than
// rejected").
type Operator func(cols []string, rows [][]value.Scalar) ([]string, [][]value.Scalar, error)

// Apply runs op against the current version and commits its result as the
// next version (spec §4.4 "Apply"). It is built entirely on Checkout and
// Commit: an operator is just a Document transform that never leaves Go.
func (a *Archive) Apply(ctx context.Context, op Operator, desc archiverow.Descriptor) (int64, error) {
	a.mu.Lock()
	v := a.nextVersion - 1
	a.mu.Unlock()

	var cols []string
	var rows [][]value.Scalar
	if v >= 0 {
		cur, err := a.Checkout(ctx, v)
		if err != nil {
			return 0, err
		}
		defer cur.Close()
		cols = cur.Columns()
		it, err := cur.Iterate(ctx)
		if err != nil {
			return 0, err
		}
		defer it.Close()
		for {
			row, ok, err := it.Next(ctx)
			if err != nil {
				return 0, err
			}
			if !ok {
				break
			}
			rows = append(rows, row.Values)
		}
	}

	newCols, newRows, err := op(cols, rows)
	if err != nil {
		return 0, err
	}

	doc := document.NewMemoryDocument(newCols, newRows, nil)
	return a.Commit(ctx, doc, desc)
}
