package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kasuganosora/historystore/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVDocumentIterate(t *testing.T) {
	path := writeTempCSV(t, "Name,Age\nBob,45\nAlice,32\n")
	doc, err := NewCSVDocument(path, ',', true)
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, []string{"Name", "Age"}, doc.Columns())

	it, err := doc.Iterate(context.Background())
	require.NoError(t, err)
	defer it.Close()

	row, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Bob", row.Values[0].String())

	_, ok, _ = it.Next(context.Background())
	assert.True(t, ok)
	_, ok, _ = it.Next(context.Background())
	assert.False(t, ok)
}

func TestCSVDocumentSortedByExternalMerge(t *testing.T) {
	path := writeTempCSV(t, "Name,Age\nBob,45\nAlice,32\nClaire,27\n")
	doc, err := NewCSVDocument(path, ',', true)
	require.NoError(t, err)
	defer doc.Close()
	doc.ChunkRows = 1 // force multiple runs to exercise the k-way merge

	sorted, err := doc.SortedBy(context.Background(), []string{"Name"})
	require.NoError(t, err)
	defer sorted.Close()

	it, err := sorted.Iterate(context.Background())
	require.NoError(t, err)
	defer it.Close()

	var names []string
	for {
		row, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, row.Values[0].String())
	}
	assert.Equal(t, []string{"Alice", "Bob", "Claire"}, names)
}

func TestCSVDocumentSortedByPreservesOriginalPosition(t *testing.T) {
	// Rows are intentionally out of key order in the file: Bob(0), Alice(1),
	// Claire(2). After SortedBy("Name") the iteration order is key-sorted,
	// but each row's Position must still reflect its place in the original,
	// unsorted file (spec §3/§4.2), not the sorted index.
	path := writeTempCSV(t, "Name,Age\nBob,45\nAlice,32\nClaire,27\n")
	doc, err := NewCSVDocument(path, ',', true)
	require.NoError(t, err)
	defer doc.Close()

	sorted, err := doc.SortedBy(context.Background(), []string{"Name"})
	require.NoError(t, err)
	defer sorted.Close()

	it, err := sorted.Iterate(context.Background())
	require.NoError(t, err)
	defer it.Close()

	wantPosition := map[string]int64{"Alice": 1, "Bob": 0, "Claire": 2}
	for {
		row, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.Equal(t, wantPosition[row.Values[0].String()], row.Position)
	}
}

func TestCSVDocumentSortedByCompositeKey(t *testing.T) {
	path := writeTempCSV(t, "Dept,Name,Age\nEng,Bob,45\nEng,Alice,32\nOps,Alice,29\n")
	doc, err := NewCSVDocument(path, ',', true)
	require.NoError(t, err)
	defer doc.Close()

	sorted, err := doc.SortedBy(context.Background(), []string{"Dept", "Name"})
	require.NoError(t, err)
	defer sorted.Close()

	it, err := sorted.Iterate(context.Background())
	require.NoError(t, err)
	defer it.Close()

	var pairs [][2]string
	for {
		row, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		pairs = append(pairs, [2]string{row.Values[0].String(), row.Values[1].String()})
		assert.Equal(t, value.KindTuple, row.Key.Kind())
	}
	assert.Equal(t, [][2]string{{"Eng", "Alice"}, {"Eng", "Bob"}, {"Ops", "Alice"}}, pairs)
}
