package archiverow

import (
	"testing"

	"github.com/kasuganosora/historystore/pkg/timestamp"
	"github.com/kasuganosora/historystore/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowCellAtMissingIsNull(t *testing.T) {
	r := NewRow(0, value.Single(value.Text("Alice"), timestamp.New(0)),
		value.Single(value.Int(0), timestamp.New(0)), map[int64]value.MultiVersionValue{})
	v := r.CellAt(5, 0)
	assert.True(t, v.IsNull())
}

func TestListingByVersionAndPosition(t *testing.T) {
	var l Listing
	l.Append(Descriptor{Version: 0, Description: "first"})
	l.Append(Descriptor{Version: 1, Description: "second"})

	d, ok := l.ByVersion(1)
	require.True(t, ok)
	assert.Equal(t, "second", d.Description)

	d, ok = l.ByPosition(0)
	require.True(t, ok)
	assert.Equal(t, "first", d.Description)

	assert.Equal(t, 2, l.Len())
}

func TestListingTruncateAfter(t *testing.T) {
	var l Listing
	l.Append(Descriptor{Version: 0})
	l.Append(Descriptor{Version: 1})
	l.Append(Descriptor{Version: 2})
	l.TruncateAfter(0)
	assert.Equal(t, 1, l.Len())
	_, ok := l.ByVersion(1)
	assert.False(t, ok)
}
