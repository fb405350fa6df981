package archive

import (
	"github.com/kasuganosora/historystore/pkg/archiverow"
	"github.com/kasuganosora/historystore/pkg/schema"
	"github.com/kasuganosora/historystore/pkg/store"
	"github.com/kasuganosora/historystore/pkg/value"
)

// rollbackCells truncates every cell's MultiVersionValue to v, dropping cells
// that only ever held a value after v.
func rollbackCells(cells map[int64]value.MultiVersionValue, v int64) map[int64]value.MultiVersionValue {
	out := make(map[int64]value.MultiVersionValue, len(cells))
	for id, mv := range cells {
		if r, ok := mv.Rollback(v); ok {
			out[id] = r
		}
	}
	return out
}

// Rollback truncates every timestamp above v, discarding all history
// recorded after it (spec §4.6). Columns and rows that did not exist at or
// before v are dropped entirely rather than kept with an empty timestamp.
// v == -1 clears the archive entirely (spec §8): every row, column, and
// snapshot descriptor is dropped, leaving a fresh, empty archive.
func (a *Archive) Rollback(v int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if v < -1 || v >= a.nextVersion {
		return errVersionf("cannot roll back to nonexistent version %d", v)
	}
	if v == a.nextVersion-1 {
		return nil
	}

	newSchema := &schema.Schema{NextColID: a.schema.NextColID}
	for _, c := range a.schema.Columns {
		ts := c.Timestamp.Rollback(v)
		if ts.IsEmpty() {
			continue
		}
		name, _ := c.Name.Rollback(v)
		position, _ := c.Position.Rollback(v)
		newSchema.Columns = append(newSchema.Columns, &schema.ArchiveColumn{
			ColID:     c.ColID,
			Name:      name,
			Position:  position,
			Timestamp: ts,
		})
	}

	newAllRows := make(map[int64]*archiverow.Row, len(a.allRows))
	for id, row := range a.allRows {
		ts := row.Timestamp.Rollback(v)
		if ts.IsEmpty() {
			continue
		}
		key, _ := row.Key.Rollback(v)
		position, _ := row.Position.Rollback(v)
		newRow := &archiverow.Row{RowID: row.RowID, Key: key, Timestamp: ts, Position: position, Cells: rollbackCells(row.Cells, v)}
		newAllRows[id] = newRow
	}

	newSnapshots := a.snapshots
	newSnapshots.TruncateAfter(v)

	if err := a.persist(newAllRows, &store.Metadata{
		Schema:      newSchema,
		Snapshots:   newSnapshots,
		NextRowID:   a.nextRowID,
		NextColID:   a.nextColID,
		NextVersion: v + 1,
		PrimaryKey:  a.primaryKey,
	}); err != nil {
		return err
	}

	a.schema = newSchema
	a.allRows = newAllRows
	a.snapshots = newSnapshots
	a.nextVersion = v + 1
	a.liveSorted = a.rebuildLiveSorted(v)
	return nil
}
