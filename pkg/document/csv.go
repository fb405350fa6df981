package document

import (
	"bufio"
	"container/heap"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/kasuganosora/historystore/pkg/value"
)

// CSVDocument is a delimited-text Document adapter (spec §4.2, §9:
// "the delimited-text adapter implements bounded-memory external
// merge-sort"). Iterate streams directly off the open file. SortedBy spills
// fixed-size chunks to temporary run files and k-way merges them; the merged
// result is collected into an in-memory Document, so a sorted CSVDocument
// holds every row in memory.
type CSVDocument struct {
	path      string
	delimiter rune
	hasHeader bool
	cols      []string
	// ChunkRows bounds the number of rows held in memory per sort run.
	ChunkRows int
}

// NewCSVDocument opens path and reads its header row to establish columns.
func NewCSVDocument(path string, delimiter rune, hasHeader bool) (*CSVDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fail(ErrDocument, "open csv %q: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	var cols []string
	if hasHeader {
		rec, err := r.Read()
		if err != nil {
			return nil, fail(ErrDocument, "read csv header %q: %v", path, err)
		}
		cols = rec
	}
	return &CSVDocument{path: path, delimiter: delimiter, hasHeader: hasHeader, cols: cols, ChunkRows: 50000}, nil
}

func (d *CSVDocument) Columns() []string { return d.cols }

func (d *CSVDocument) Close() error { return nil }

func (d *CSVDocument) Iterate(ctx context.Context) (Iterator, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, fail(ErrDocument, "open csv %q: %v", d.path, err)
	}
	r := csv.NewReader(f)
	r.Comma = d.delimiter
	if d.hasHeader {
		if _, err := r.Read(); err != nil {
			f.Close()
			return nil, fail(ErrDocument, "read csv header %q: %v", d.path, err)
		}
	}
	return &csvIterator{file: f, reader: r}, nil
}

type csvIterator struct {
	file   *os.File
	reader *csv.Reader
	pos    int64
}

func (it *csvIterator) Next(ctx context.Context) (Row, bool, error) {
	rec, err := it.reader.Read()
	if err == io.EOF {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fail(ErrDocument, "read csv row: %v", err)
	}
	vals := make([]value.Scalar, len(rec))
	for i, s := range rec {
		vals[i] = value.Text(s)
	}
	row := Row{Position: it.pos, Key: value.Int(it.pos), Values: vals}
	it.pos++
	return row, true, nil
}

func (it *csvIterator) Close() error { return it.file.Close() }

// SortedBy implements Document.SortedBy via bounded-memory external
// merge-sort: the source is read in ChunkRows-sized chunks, each chunk
// sorted in memory and spilled to a temporary run file, then the runs are
// merged with a min-heap that holds one row per run. The merged rows are
// collected into the returned in-memory Document, so the whole file ends up
// in memory once the merge completes. Temporary files are scoped to this
// call and removed before it
// returns (spec §5, "Temporary files from external sort are scoped to the
// single commit that created them").
func (d *CSVDocument) SortedBy(ctx context.Context, columns []string) (Document, error) {
	idxs := make([]int, len(columns))
	for i, c := range columns {
		idx := ColumnIndex(d.cols, c)
		if idx < 0 {
			return nil, fail(ErrSchema, "key column %q not found", c)
		}
		idxs[i] = idx
	}

	src, err := d.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var runPaths []string
	defer func() {
		for _, p := range runPaths {
			os.Remove(p)
		}
	}()

	chunk := make([]Row, 0, d.ChunkRows)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		sortRowsByKey(chunk, idxs)
		path, err := writeRunFile(chunk)
		if err != nil {
			return err
		}
		runPaths = append(runPaths, path)
		chunk = chunk[:0]
		return nil
	}

	for {
		row, ok, err := src.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		chunk = append(chunk, row)
		if len(chunk) >= d.ChunkRows {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	mergedRows, err := mergeRuns(runPaths, idxs, len(d.cols))
	if err != nil {
		return nil, err
	}

	if len(idxs) > 0 {
		for i := range mergedRows {
			mergedRows[i].Key = keyFor(mergedRows[i].Values, idxs)
		}
	} else {
		for i := range mergedRows {
			mergedRows[i].Key = value.Int(mergedRows[i].Position)
		}
	}
	return newSortedMemoryDocument(d.cols, mergedRows), nil
}

func sortRowsByKey(rows []Row, idxs []int) {
	// insertion sort keeps the external-sort runs stable and avoids pulling
	// in another comparator abstraction for what is already a bounded chunk.
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rowLess(rows[j], rows[j-1], idxs); j-- {
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
}

func rowLess(a, b Row, idxs []int) bool {
	for _, idx := range idxs {
		av, bv := a.Values[idx], b.Values[idx]
		if value.Equal(av, bv) {
			continue
		}
		return value.Less(av, bv)
	}
	return false
}

// writeRunFile spills a sorted chunk to a temporary CSV file.
func writeRunFile(rows []Row) (string, error) {
	f, err := os.CreateTemp("", "historystore-run-*.csv")
	if err != nil {
		return "", fail(ErrDocument, "create external sort run: %v", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, r := range rows {
		rec := make([]string, len(r.Values))
		for i, v := range r.Values {
			rec[i] = v.String()
		}
		rec = append(rec, strconv.FormatInt(r.Position, 10))
		if err := w.Write(rec); err != nil {
			return "", fail(ErrDocument, "write external sort run: %v", err)
		}
	}
	w.Flush()
	return f.Name(), w.Error()
}

type runReader struct {
	file   *os.File
	reader *csv.Reader
}

func openRun(path string) (*runReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &runReader{file: f, reader: csv.NewReader(bufio.NewReader(f))}, nil
}

func (r *runReader) next(ncols int) (Row, bool, error) {
	rec, err := r.reader.Read()
	if err == io.EOF {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, err
	}
	pos, _ := strconv.ParseInt(rec[ncols], 10, 64)
	vals := make([]value.Scalar, ncols)
	for i := 0; i < ncols; i++ {
		vals[i] = value.Text(rec[i])
	}
	return Row{Position: pos, Values: vals}, true, nil
}

type mergeItem struct {
	row    Row
	runIdx int
}

type mergeHeap struct {
	items []mergeItem
	idxs  []int
}

func (h *mergeHeap) Len() int { return len(h.items) }
func (h *mergeHeap) Less(i, j int) bool {
	a, b := h.items[i].row, h.items[j].row
	if rowLess(a, b, h.idxs) {
		return true
	}
	if rowLess(b, a, h.idxs) {
		return false
	}
	// Equal keys (or no key columns at all) fall back to original file order.
	return a.Position < b.Position
}
func (h *mergeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap) Push(x interface{}) { h.items = append(h.items, x.(mergeItem)) }
func (h *mergeHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// mergeRuns performs a k-way merge of sorted run files, returning the full
// merged row set in key order (rows with equal keys keep their original file
// order). The heap holds one row per run; the returned slice holds them all.
func mergeRuns(paths []string, idxs []int, ncols int) ([]Row, error) {
	readers := make([]*runReader, len(paths))
	for i, p := range paths {
		r, err := openRun(p)
		if err != nil {
			return nil, fail(ErrDocument, "open external sort run: %v", err)
		}
		readers[i] = r
	}
	defer func() {
		for _, r := range readers {
			r.file.Close()
		}
	}()

	h := &mergeHeap{idxs: idxs}
	heap.Init(h)
	for i, r := range readers {
		row, ok, err := r.next(ncols)
		if err != nil {
			return nil, fail(ErrDocument, "read external sort run: %v", err)
		}
		if ok {
			heap.Push(h, mergeItem{row: row, runIdx: i})
		}
	}

	var out []Row
	for h.Len() > 0 {
		top := heap.Pop(h).(mergeItem)
		out = append(out, top.row)
		row, ok, err := readers[top.runIdx].next(ncols)
		if err != nil {
			return nil, fail(ErrDocument, "read external sort run: %v", err)
		}
		if ok {
			heap.Push(h, mergeItem{row: row, runIdx: top.runIdx})
		}
	}
	return out, nil
}
