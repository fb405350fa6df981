package document

import (
	"context"
	"os"
	"sort"

	"github.com/kasuganosora/historystore/pkg/value"
	"github.com/xuri/excelize/v2"
)

// ExcelDocument is a record-oriented Document adapter over one worksheet of
// an .xlsx file (spec §9, "record-stream" variant; SPEC_FULL.md §B wires
// excelize here). The first row is the header; every row after it is a
// record whose cells align positionally with Columns().
type ExcelDocument struct {
	cols []string
	rows [][]value.Scalar
}

// NewExcelDocument opens path and reads sheetName (or the file's first
// sheet, if sheetName is empty) fully into memory; excelize itself streams
// the underlying zip, but the cell grid is realized as text scalars since a
// spreadsheet has no reliable column typing of its own.
func NewExcelDocument(path, sheetName string) (*ExcelDocument, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fail(ErrDocument, "stat excel %q: %v", path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fail(ErrDocument, "open excel %q: %v", path, err)
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fail(ErrDocument, "no sheets found in %q", path)
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fail(ErrDocument, "read excel sheet %q: %v", sheetName, err)
	}
	if len(rows) == 0 {
		return &ExcelDocument{}, nil
	}

	cols := rows[0]
	width := len(cols)
	data := make([][]value.Scalar, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		vals := make([]value.Scalar, width)
		for i := 0; i < width; i++ {
			if i < len(rec) && rec[i] != "" {
				vals[i] = value.Text(rec[i])
			} else {
				vals[i] = value.Null
			}
		}
		data = append(data, vals)
	}
	return &ExcelDocument{cols: cols, rows: data}, nil
}

func (d *ExcelDocument) Columns() []string { return d.cols }
func (d *ExcelDocument) Close() error      { return nil }

func (d *ExcelDocument) Iterate(ctx context.Context) (Iterator, error) {
	return &excelIterator{doc: d}, nil
}

type excelIterator struct {
	doc *ExcelDocument
	pos int
}

func (it *excelIterator) Next(ctx context.Context) (Row, bool, error) {
	if it.pos >= len(it.doc.rows) {
		return Row{}, false, nil
	}
	vals := it.doc.rows[it.pos]
	row := Row{Position: int64(it.pos), Key: value.Int(int64(it.pos)), Values: vals}
	it.pos++
	return row, true, nil
}

func (it *excelIterator) Close() error { return nil }

func (d *ExcelDocument) SortedBy(ctx context.Context, columns []string) (Document, error) {
	idxs := make([]int, len(columns))
	for i, c := range columns {
		idx := ColumnIndex(d.cols, c)
		if idx < 0 {
			return nil, fail(ErrSchema, "key column %q not found", c)
		}
		idxs[i] = idx
	}

	rows := make([]Row, len(d.rows))
	for i, vals := range d.rows {
		rows[i] = Row{Position: int64(i), Key: value.Int(int64(i)), Values: vals}
	}
	if len(columns) > 0 {
		sort.SliceStable(rows, func(i, j int) bool { return rowLess(rows[i], rows[j], idxs) })
		for i := range rows {
			rows[i].Key = keyFor(rows[i].Values, idxs)
		}
	}
	return newSortedMemoryDocument(d.cols, rows), nil
}
