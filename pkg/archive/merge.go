package archive

import (
	"context"
	"sort"

	"github.com/kasuganosora/historystore/pkg/archiverow"
	"github.com/kasuganosora/historystore/pkg/document"
	"github.com/kasuganosora/historystore/pkg/schema"
	"github.com/kasuganosora/historystore/pkg/store"
	"github.com/kasuganosora/historystore/pkg/timestamp"
	"github.com/kasuganosora/historystore/pkg/value"
)

// Commit folds a new Document snapshot into the archive as the next version
// (spec §4.4, the two-way outer-join nested merge). It is atomic: on any
// error the archive's in-memory state and its Store are left exactly as they
// were (spec §7).
func (a *Archive) Commit(ctx context.Context, doc document.Document, desc archiverow.Descriptor) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.commitLocked(ctx, doc, desc)
}

func (a *Archive) commit(ctx context.Context, doc document.Document, desc archiverow.Descriptor) (int64, error) {
	return a.commitLocked(ctx, doc, desc)
}

func (a *Archive) commitLocked(ctx context.Context, doc document.Document, desc archiverow.Descriptor) (int64, error) {
	v := a.nextVersion

	sorted, err := doc.SortedBy(ctx, a.primaryKey)
	if err != nil {
		return 0, err
	}
	defer sorted.Close()

	cols := sorted.Columns()
	if a.primaryKey != nil {
		for _, pk := range a.primaryKey {
			if document.ColumnIndex(cols, pk) < 0 {
				return 0, errSchemaf("key column %q missing from commit at version %d", pk, v)
			}
		}
	}

	newSchema, colIDs, nextColID := a.alignSchema(cols, v)

	it, err := sorted.Iterate(ctx)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	rowsOut, nextRowID, err := a.mergeRows(ctx, it, colIDs, v)
	if err != nil {
		return 0, err
	}

	newAllRows := make(map[int64]*archiverow.Row, len(a.allRows)+len(rowsOut))
	for id, row := range a.allRows {
		newAllRows[id] = row
	}
	var newLive []*archiverow.Row
	for _, row := range rowsOut {
		newAllRows[row.RowID] = row
		if row.Alive(v) {
			newLive = append(newLive, row)
		}
	}

	newSnapshots := a.snapshots
	desc.Version = v
	newSnapshots.Append(desc)

	if err := a.persist(newAllRows, &store.Metadata{
		Schema:      newSchema,
		Snapshots:   newSnapshots,
		NextRowID:   nextRowID,
		NextColID:   nextColID,
		NextVersion: v + 1,
		PrimaryKey:  a.primaryKey,
	}); err != nil {
		return 0, err
	}

	a.schema = newSchema
	a.allRows = newAllRows
	a.liveSorted = newLive
	a.snapshots = newSnapshots
	a.nextRowID = nextRowID
	a.nextColID = nextColID
	a.nextVersion = v + 1
	return v, nil
}

// alignSchema maps the incoming Document's column names onto stable column
// identifiers: a name matching a column alive at v-1 extends that column, an
// unrecognized one allocates a fresh ColID (spec §4.3; MatchByID is not
// exercised because Document carries only names, never external ids --
// SPEC_FULL.md §C.4). Columns absent from the new snapshot are left
// untouched, which lets their Timestamp stop covering v implicitly.
func (a *Archive) alignSchema(cols []string, v int64) (*schema.Schema, []int64, int64) {
	out := &schema.Schema{Columns: append([]*schema.ArchiveColumn{}, a.schema.Columns...), NextColID: a.schema.NextColID}
	colIDs := make([]int64, len(cols))

	for i, name := range cols {
		existing := a.schema.ByNameAt(name, v-1)
		if existing != nil {
			updated := &schema.ArchiveColumn{
				ColID:     existing.ColID,
				Name:      existing.Name.Extend(value.Text(name), v),
				Position:  existing.Position.Extend(value.Int(int64(i)), v),
				Timestamp: existing.Timestamp.Append(v),
			}
			for j, c := range out.Columns {
				if c.ColID == existing.ColID {
					out.Columns[j] = updated
					break
				}
			}
			colIDs[i] = existing.ColID
			continue
		}
		id := out.NextColID
		out.NextColID++
		out.Columns = append(out.Columns, &schema.ArchiveColumn{
			ColID:     id,
			Name:      value.Single(value.Text(name), timestamp.New(v)),
			Position:  value.Single(value.Int(int64(i)), timestamp.New(v)),
			Timestamp: timestamp.New(v),
		})
		colIDs[i] = id
	}
	return out, colIDs, out.NextColID
}

// mergeRows performs the streaming two-way outer join of spec §4.4: stream A
// is the rows alive at v-1 (already sorted ascending by key), stream B is the
// incoming Document rows (sorted the same way by the caller). Matching keys
// extend a row's history; an A-only key leaves a row to die at v; a B-only
// key allocates a fresh row.
func (a *Archive) mergeRows(ctx context.Context, it document.Iterator, colIDs []int64, v int64) ([]*archiverow.Row, int64, error) {
	keyed := a.primaryKey != nil
	nextRowID := a.nextRowID

	headB, okB, err := it.Next(ctx)
	if err != nil {
		return nil, 0, err
	}

	var out []*archiverow.Row
	var lastKey value.Scalar
	haveLast := false

	checkDup := func(k value.Scalar) error {
		if keyed && haveLast && value.Equal(lastKey, k) {
			return errDuplicateKeyf("duplicate key %s at version %d", k.GoString(), v)
		}
		lastKey, haveLast = k, true
		return nil
	}

	iA := 0
	for iA < len(a.liveSorted) || okB {
		switch {
		case iA >= len(a.liveSorted):
			if err := checkDup(headB.Key); err != nil {
				return nil, 0, err
			}
			out = append(out, newRowFromDoc(headB, colIDs, v, nextRowID))
			nextRowID++
			headB, okB, err = it.Next(ctx)
			if err != nil {
				return nil, 0, err
			}
		case !okB:
			out = append(out, a.liveSorted[iA])
			iA++
		default:
			aKey, _ := a.liveSorted[iA].KeyAt(v - 1)
			switch cmpScalar(aKey, headB.Key) {
			case -1:
				out = append(out, a.liveSorted[iA])
				iA++
			case 1:
				if err := checkDup(headB.Key); err != nil {
					return nil, 0, err
				}
				out = append(out, newRowFromDoc(headB, colIDs, v, nextRowID))
				nextRowID++
				headB, okB, err = it.Next(ctx)
				if err != nil {
					return nil, 0, err
				}
			default:
				if err := checkDup(headB.Key); err != nil {
					return nil, 0, err
				}
				out = append(out, extendRow(a.liveSorted[iA], headB, colIDs, v))
				iA++
				headB, okB, err = it.Next(ctx)
				if err != nil {
					return nil, 0, err
				}
			}
		}
	}
	return out, nextRowID, nil
}

func newRowFromDoc(b document.Row, colIDs []int64, v int64, rowID int64) *archiverow.Row {
	cells := make(map[int64]value.MultiVersionValue, len(colIDs))
	for i, colID := range colIDs {
		cells[colID] = value.Single(b.Values[i], timestamp.New(v))
	}
	return &archiverow.Row{
		RowID:     rowID,
		Key:       value.Single(b.Key, timestamp.New(v)),
		Timestamp: timestamp.New(v),
		Position:  value.Single(value.Int(b.Position), timestamp.New(v)),
		Cells:     cells,
	}
}

func extendRow(old *archiverow.Row, b document.Row, colIDs []int64, v int64) *archiverow.Row {
	cells := make(map[int64]value.MultiVersionValue, len(old.Cells)+len(colIDs))
	for id, mv := range old.Cells {
		cells[id] = mv
	}
	for i, colID := range colIDs {
		if mv, ok := cells[colID]; ok {
			cells[colID] = mv.Extend(b.Values[i], v)
		} else {
			cells[colID] = value.Single(b.Values[i], timestamp.New(v))
		}
	}
	return &archiverow.Row{
		RowID:     old.RowID,
		Key:       old.Key.Extend(b.Key, v),
		Timestamp: old.Timestamp.Append(v),
		Position:  old.Position.Extend(value.Int(b.Position), v),
		Cells:     cells,
	}
}

// sortedRowIDs returns RowIDs ascending, giving the row file a deterministic
// write order independent of Go's map iteration.
func sortedRowIDs(rows map[int64]*archiverow.Row) []int64 {
	ids := make([]int64, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
