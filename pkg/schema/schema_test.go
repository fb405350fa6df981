package schema

import (
	"testing"

	"github.com/kasuganosora/historystore/pkg/timestamp"
	"github.com/kasuganosora/historystore/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsAtOrdersByPosition(t *testing.T) {
	s := NewSchema()
	c0 := &ArchiveColumn{
		ColID:     0,
		Name:      value.Single(value.Text("Name"), timestamp.New(0)),
		Position:  value.Single(value.Int(1), timestamp.New(0)),
		Timestamp: timestamp.New(0),
	}
	c1 := &ArchiveColumn{
		ColID:     1,
		Name:      value.Single(value.Text("Age"), timestamp.New(0)),
		Position:  value.Single(value.Int(0), timestamp.New(0)),
		Timestamp: timestamp.New(0),
	}
	s.Columns = append(s.Columns, c0, c1)

	ordered := s.ColumnsAt(0)
	require.Len(t, ordered, 2)
	assert.Equal(t, int64(1), ordered[0].ColID)
	assert.Equal(t, int64(0), ordered[1].ColID)
}

func TestColumnsAtExcludesDeadColumns(t *testing.T) {
	s := NewSchema()
	c := &ArchiveColumn{
		ColID:     0,
		Name:      value.Single(value.Text("X"), timestamp.New(0)),
		Position:  value.Single(value.Int(0), timestamp.New(0)),
		Timestamp: timestamp.New(0),
	}
	s.Columns = append(s.Columns, c)
	assert.Len(t, s.ColumnsAt(0), 1)
	assert.Len(t, s.ColumnsAt(1), 0)
}

func TestAllocateColumnMonotonic(t *testing.T) {
	s := NewSchema()
	assert.Equal(t, int64(0), s.AllocateColumn())
	assert.Equal(t, int64(1), s.AllocateColumn())
}
