// Package archiverow defines ArchiveRow and the snapshot metadata (spec §3)
// that the merge engine, checkout, and rollback operate over.
package archiverow

import (
	"github.com/kasuganosora/historystore/pkg/timestamp"
	"github.com/kasuganosora/historystore/pkg/value"
)

// Row is an identity-bearing row entity. Identity is carried by RowID, never
// by key or position, so un-keyed archives track history across
// reindexings and keyed archives track history across permutations
// (spec §9, "Identity across versions").
type Row struct {
	RowID     int64
	Key       value.MultiVersionValue
	Timestamp timestamp.Timestamp
	Position  value.MultiVersionValue
	Cells     map[int64]value.MultiVersionValue // column_id -> cell history
}

// NewRow builds a row from its id, key, position and cells. Its Timestamp is
// left empty; the caller sets it.
func NewRow(id int64, key, position value.MultiVersionValue, cells map[int64]value.MultiVersionValue) *Row {
	return &Row{RowID: id, Key: key, Position: position, Cells: cells}
}

// KeyAt returns the row's key scalar at version v.
func (r *Row) KeyAt(v int64) (value.Scalar, bool) {
	return r.Key.At(v)
}

// PositionAt returns the row's 0-based position at version v.
func (r *Row) PositionAt(v int64) (int, bool) {
	s, ok := r.Position.At(v)
	if !ok {
		return 0, false
	}
	return int(s.Int()), true
}

// CellAt returns the scalar of column colID at version v. A missing cell on
// a live column implies null over the intersection of row and column
// timestamps (spec §3 invariant).
func (r *Row) CellAt(colID int64, v int64) value.Scalar {
	mv, ok := r.Cells[colID]
	if !ok {
		return value.Null
	}
	s, ok := mv.At(v)
	if !ok {
		return value.Null
	}
	return s
}

// Alive reports whether the row exists at version v.
func (r *Row) Alive(v int64) bool {
	return r.Timestamp.Contains(v)
}

// Descriptor records metadata for a single committed version (spec §3,
// "Snapshot descriptor"; SPEC_FULL.md §C.5 adds SourceID provenance).
type Descriptor struct {
	Version     int64
	CommittedAt int64 // unix nanos; caller-supplied so merge stays deterministic
	Description string
	Operation   string
	SourceID    string // provenance: which Document/adapter produced this commit
}

// Listing is the ordered list of committed-version descriptors, indexable by
// version or by position (spec §6, "snapshots()").
type Listing struct {
	entries []Descriptor
}

// Append adds a new descriptor. Callers must ensure strictly increasing
// Version (spec §4.4 invariant: "version is unique and strictly increasing").
func (l *Listing) Append(d Descriptor) {
	l.entries = append(l.entries, d)
}

// ByVersion looks up the descriptor for version v.
func (l *Listing) ByVersion(v int64) (Descriptor, bool) {
	for _, d := range l.entries {
		if d.Version == v {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ByPosition returns the i-th committed descriptor in commit order.
func (l *Listing) ByPosition(i int) (Descriptor, bool) {
	if i < 0 || i >= len(l.entries) {
		return Descriptor{}, false
	}
	return l.entries[i], true
}

// All returns every descriptor in commit order. Callers must not mutate it.
func (l *Listing) All() []Descriptor {
	return l.entries
}

// Len returns the number of committed versions.
func (l *Listing) Len() int {
	return len(l.entries)
}

// TruncateAfter drops every descriptor with Version > v (rollback, spec §4.6).
// Builds a fresh backing array rather than compacting in place, since l may
// share its backing array with another Listing value still in use elsewhere
// (e.g. the archive's own pre-rollback state, kept around until the rollback
// commits).
func (l *Listing) TruncateAfter(v int64) {
	kept := make([]Descriptor, 0, len(l.entries))
	for _, d := range l.entries {
		if d.Version <= v {
			kept = append(kept, d)
		}
	}
	l.entries = kept
}
