package document

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTempExcel(t *testing.T, header []string, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelDocumentIterate(t *testing.T) {
	path := writeTempExcel(t, []string{"Name", "Age"}, [][]string{
		{"Bob", "45"},
		{"Alice", "32"},
	})

	doc, err := NewExcelDocument(path, "")
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

func TestExcelDocumentSortedByAndMissingCells(t *testing.T) {
	path := writeTempExcel(t, []string{"Name", "Age"}, [][]string{
		{"Bob", "45"},
		{"Alice", ""},
	})

	doc, err := NewExcelDocument(path, "")
	require.NoError(t, err)
	defer doc.Close()

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
		if names[len(names)-1] == "Alice" {
			assert.True(t, row.Values[1].IsNull())
		}
	}
	assert.Equal(t, []string{"Alice", "Bob"}, names)
}
