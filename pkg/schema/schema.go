// Package schema implements ArchiveColumn and Schema: the identity-bearing
// column entities and their ordered collection, as described in spec §3/§4.3.
package schema

import (
	"github.com/kasuganosora/historystore/pkg/timestamp"
	"github.com/kasuganosora/historystore/pkg/value"
)

// ColumnMatchPolicy selects how an incoming Document column is aligned with
// an existing archive column (spec §4.3, Open Question resolved in
// SPEC_FULL.md §C.4).
type ColumnMatchPolicy int

const (
	// MatchByID aligns columns using the Document's external column
	// identifiers.
	MatchByID ColumnMatchPolicy = iota
	// MatchByName aligns columns by current name; a rename is only
	// observed as a name change if the identifier also matches, otherwise
	// it allocates a new column.
	MatchByName
)

// ArchiveColumn is a stable, identity-bearing column entity. Renames change
// Name; reorderings change Position; both are MultiVersionValues so the
// column's full history survives.
type ArchiveColumn struct {
	ColID     int64
	Name      value.MultiVersionValue // text
	Position  value.MultiVersionValue // int
	Timestamp timestamp.Timestamp
}

// NameAt returns the column's name at version v.
func (c *ArchiveColumn) NameAt(v int64) (string, bool) {
	s, ok := c.Name.At(v)
	if !ok {
		return "", false
	}
	return s.String(), true
}

// PositionAt returns the column's 0-based position at version v.
func (c *ArchiveColumn) PositionAt(v int64) (int, bool) {
	s, ok := c.Position.At(v)
	if !ok {
		return 0, false
	}
	return int(s.Int()), true
}

// Alive reports whether the column exists at version v.
func (c *ArchiveColumn) Alive(v int64) bool {
	return c.Timestamp.Contains(v)
}

// Schema is the ordered collection of archive columns, keyed by stable
// integer ColID. Order within a version is derived from each column's
// Position MultiVersionValue, not from Columns' slice order.
type Schema struct {
	Columns   []*ArchiveColumn
	NextColID int64
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{}
}

// ByID returns the column with the given ColID, or nil.
func (s *Schema) ByID(id int64) *ArchiveColumn {
	for _, c := range s.Columns {
		if c.ColID == id {
			return c
		}
	}
	return nil
}

// ByNameAt returns the column named n at version v under MatchByName
// alignment, or nil if none matches.
func (s *Schema) ByNameAt(n string, v int64) *ArchiveColumn {
	for _, c := range s.Columns {
		if !c.Alive(v) {
			continue
		}
		if name, ok := c.NameAt(v); ok && name == n {
			return c
		}
	}
	return nil
}

// AllocateColumn assigns and returns a fresh ColID.
func (s *Schema) AllocateColumn() int64 {
	id := s.NextColID
	s.NextColID++
	return id
}

// ColumnsAt returns the columns alive at version v, ordered ascending by
// their Position at v (spec §4.5: "Column order is extracted from the
// schema's position MultiVersionValues at v").
func (s *Schema) ColumnsAt(v int64) []*ArchiveColumn {
	type posCol struct {
		pos int
		col *ArchiveColumn
	}
	var live []posCol
	for _, c := range s.Columns {
		if !c.Alive(v) {
			continue
		}
		pos, ok := c.PositionAt(v)
		if !ok {
			continue
		}
		live = append(live, posCol{pos: pos, col: c})
	}
	for i := 1; i < len(live); i++ {
		for j := i; j > 0 && live[j-1].pos > live[j].pos; j-- {
			live[j-1], live[j] = live[j], live[j-1]
		}
	}
	out := make([]*ArchiveColumn, len(live))
	for i, pc := range live {
		out[i] = pc.col
	}
	return out
}
