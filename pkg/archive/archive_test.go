package archive

import (
	"context"
	"testing"

	"github.com/kasuganosora/historystore/pkg/archiverow"
	"github.com/kasuganosora/historystore/pkg/document"
	"github.com/kasuganosora/historystore/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memDoc(cols []string, rows [][]string) document.Document {
	vals := make([][]value.Scalar, len(rows))
	for i, r := range rows {
		row := make([]value.Scalar, len(r))
		for j, c := range r {
			row[j] = value.Text(c)
		}
		vals[i] = row
	}
	return document.NewMemoryDocument(cols, vals, nil)
}

func TestKeyedArchiveBasicMergeAndCheckout(t *testing.T) {
	ctx := context.Background()
	doc0 := memDoc([]string{"Name", "City"}, [][]string{
		{"Alice", "Boston"},
		{"Bob", "Austin"},
	})

	a, err := New(ctx, CreateOptions{PrimaryKey: []string{"Name"}, InitialDocument: doc0})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, int64(0), a.CurrentVersion())

	doc1 := memDoc([]string{"Name", "City"}, [][]string{
		{"Alice", "Boston"},
		{"Bob", "Denver"},
		{"Carol", "Reno"},
	})
	v1, err := a.Commit(ctx, doc1, archiverow.Descriptor{Description: "move bob, add carol"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	r, err := a.CheckoutReader(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Name", "City"}, r.Columns())

	got := map[string]string{}
	for {
		row, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		nameIdx, cityIdx := colIndex(r.Columns(), "Name"), colIndex(r.Columns(), "City")
		got[row[nameIdx].String()] = row[cityIdx].String()
	}
	assert.Equal(t, map[string]string{"Alice": "Boston", "Bob": "Denver", "Carol": "Reno"}, got)

	r0, err := a.CheckoutReader(ctx, 0)
	require.NoError(t, err)
	names0 := map[string]bool{}
	for {
		row, ok, err := r0.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		names0[row[colIndex(r0.Columns(), "Name")].String()] = true
	}
	assert.Equal(t, map[string]bool{"Alice": true, "Bob": true}, names0)
}

func TestDroppedRowDiesButSurvivesEarlierCheckout(t *testing.T) {
	ctx := context.Background()
	doc0 := memDoc([]string{"Name"}, [][]string{{"Alice"}, {"Bob"}})
	a, err := New(ctx, CreateOptions{PrimaryKey: []string{"Name"}, InitialDocument: doc0})
	require.NoError(t, err)
	defer a.Close()

	doc1 := memDoc([]string{"Name"}, [][]string{{"Alice"}})
	_, err = a.Commit(ctx, doc1, archiverow.Descriptor{Description: "drop bob"})
	require.NoError(t, err)

	r1, err := a.CheckoutReader(ctx, 1)
	require.NoError(t, err)
	var names1 []string
	for {
		row, ok, err := r1.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		names1 = append(names1, row[0].String())
	}
	assert.Equal(t, []string{"Alice"}, names1)

	r0, err := a.CheckoutReader(ctx, 0)
	require.NoError(t, err)
	var names0 []string
	for {
		row, ok, err := r0.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		names0 = append(names0, row[0].String())
	}
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, names0)
}

func TestDuplicateKeyInCommitIsRejected(t *testing.T) {
	ctx := context.Background()
	doc0 := memDoc([]string{"Name"}, [][]string{{"Alice"}})
	a, err := New(ctx, CreateOptions{PrimaryKey: []string{"Name"}, InitialDocument: doc0})
	require.NoError(t, err)
	defer a.Close()

	dup := memDoc([]string{"Name"}, [][]string{{"Alice"}, {"Alice"}})
	_, err = a.Commit(ctx, dup, archiverow.Descriptor{Description: "dup"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// A failed commit must not have advanced the version or mutated state.
	assert.Equal(t, int64(0), a.CurrentVersion())
}

func TestMissingKeyColumnIsSchemaError(t *testing.T) {
	ctx := context.Background()
	doc0 := memDoc([]string{"Name"}, [][]string{{"Alice"}})
	a, err := New(ctx, CreateOptions{PrimaryKey: []string{"Name"}, InitialDocument: doc0})
	require.NoError(t, err)
	defer a.Close()

	bad := memDoc([]string{"City"}, [][]string{{"Boston"}})
	_, err = a.Commit(ctx, bad, archiverow.Descriptor{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestRollbackTruncatesHistory(t *testing.T) {
	ctx := context.Background()
	doc0 := memDoc([]string{"Name"}, [][]string{{"Alice"}})
	a, err := New(ctx, CreateOptions{PrimaryKey: []string{"Name"}, InitialDocument: doc0})
	require.NoError(t, err)
	defer a.Close()

	doc1 := memDoc([]string{"Name"}, [][]string{{"Alice"}, {"Bob"}})
	_, err = a.Commit(ctx, doc1, archiverow.Descriptor{})
	require.NoError(t, err)

	doc2 := memDoc([]string{"Name"}, [][]string{{"Alice"}, {"Bob"}, {"Carol"}})
	_, err = a.Commit(ctx, doc2, archiverow.Descriptor{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.CurrentVersion())

	require.NoError(t, a.Rollback(1))
	assert.Equal(t, int64(1), a.CurrentVersion())
	assert.Len(t, a.Snapshots(), 2)

	_, err = a.CheckoutReader(ctx, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersion)

	r1, err := a.CheckoutReader(ctx, 1)
	require.NoError(t, err)
	var names []string
	for {
		row, ok, err := r1.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, row[0].String())
	}
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, names)
}

func TestApplyRenumbersAndCommits(t *testing.T) {
	ctx := context.Background()
	doc0 := memDoc([]string{"Name"}, [][]string{{"Alice"}, {"Bob"}})
	a, err := New(ctx, CreateOptions{PrimaryKey: []string{"Name"}, InitialDocument: doc0})
	require.NoError(t, err)
	defer a.Close()

	v, err := a.Apply(ctx, func(cols []string, rows [][]value.Scalar) ([]string, [][]value.Scalar, error) {
		out := make([][]value.Scalar, 0, len(rows)+1)
		out = append(out, rows...)
		out = append(out, []value.Scalar{value.Text("Carol")})
		return cols, out, nil
	}, archiverow.Descriptor{Description: "append carol via operator"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	r, err := a.CheckoutReader(ctx, 1)
	require.NoError(t, err)
	var names []string
	for {
		row, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, row[0].String())
	}
	assert.ElementsMatch(t, []string{"Alice", "Bob", "Carol"}, names)
}

func TestUnkeyedArchiveTracksIdentityAcrossReindexing(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, CreateOptions{})
	require.NoError(t, err)
	defer a.Close()

	doc0 := memDoc([]string{"Name"}, [][]string{{"X"}, {"Y"}, {"Z"}})
	_, err = a.Commit(ctx, doc0, archiverow.Descriptor{})
	require.NoError(t, err)

	doc1 := memDoc([]string{"Name"}, [][]string{{"X"}, {"Z"}})
	_, err = a.Commit(ctx, doc1, archiverow.Descriptor{})
	require.NoError(t, err)

	r, err := a.CheckoutReader(ctx, 1)
	require.NoError(t, err)
	var names []string
	for {
		row, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, row[0].String())
	}
	assert.Equal(t, []string{"X", "Z"}, names)
}

func TestRollbackToMinusOneClearsTheArchive(t *testing.T) {
	ctx := context.Background()
	doc0 := memDoc([]string{"Name"}, [][]string{{"Alice"}, {"Bob"}})
	a, err := New(ctx, CreateOptions{PrimaryKey: []string{"Name"}, InitialDocument: doc0})
	require.NoError(t, err)
	defer a.Close()

	doc1 := memDoc([]string{"Name"}, [][]string{{"Alice"}, {"Bob"}, {"Carol"}})
	_, err = a.Commit(ctx, doc1, archiverow.Descriptor{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.CurrentVersion())

	require.NoError(t, a.Rollback(-1))
	assert.Equal(t, int64(-1), a.CurrentVersion())
	assert.Empty(t, a.Snapshots())

	_, err = a.CheckoutReader(ctx, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersion)

	r, err := a.Reader(ctx)
	require.NoError(t, err)
	row, ok, err := r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, row)

	require.Error(t, a.Rollback(-2))
}

func TestRawRowHistoryReaderStreamsEveryRowInStorageOrder(t *testing.T) {
	ctx := context.Background()
	doc0 := memDoc([]string{"Name"}, [][]string{{"Alice"}, {"Bob"}})
	a, err := New(ctx, CreateOptions{PrimaryKey: []string{"Name"}, InitialDocument: doc0})
	require.NoError(t, err)
	defer a.Close()

	doc1 := memDoc([]string{"Name"}, [][]string{{"Alice"}})
	_, err = a.Commit(ctx, doc1, archiverow.Descriptor{Description: "drop bob"})
	require.NoError(t, err)

	r, err := a.Reader(ctx)
	require.NoError(t, err)

	var ids []int64
	var bobAlive bool
	for {
		row, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, row.RowID)
		if key, ok := row.KeyAt(0); ok && key.String() == "Bob" {
			bobAlive = row.Alive(1)
		}
	}
	assert.Equal(t, []int64{0, 1}, ids)
	assert.False(t, bobAlive, "Bob's row must still be present in the raw history stream even though it is dead at v1")
}

func TestCompositeKeyCommitAndCheckout(t *testing.T) {
	ctx := context.Background()
	docCols := []string{"Dept", "Name", "Age"}
	doc0 := memDoc(docCols, [][]string{
		{"Eng", "Alice", "32"},
		{"Eng", "Bob", "45"},
	})
	a, err := New(ctx, CreateOptions{PrimaryKey: []string{"Dept", "Name"}, InitialDocument: doc0})
	require.NoError(t, err)
	defer a.Close()

	doc1 := memDoc(docCols, [][]string{
		{"Eng", "Alice", "33"},
		{"Ops", "Alice", "29"},
	})
	_, err = a.Commit(ctx, doc1, archiverow.Descriptor{Description: "move/add alice, drop bob"})
	require.NoError(t, err)

	r, err := a.CheckoutReader(ctx, 1)
	require.NoError(t, err)
	got := map[string]string{}
	for {
		row, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		key := row[colIndex(r.Columns(), "Dept")].String() + "/" + row[colIndex(r.Columns(), "Name")].String()
		got[key] = row[colIndex(r.Columns(), "Age")].String()
	}
	assert.Equal(t, map[string]string{"Eng/Alice": "33", "Ops/Alice": "29"}, got)
}

func colIndex(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
