package document

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sort"

	"github.com/kasuganosora/historystore/pkg/value"
)

// JSONLDocument is a record-oriented Document adapter over newline-delimited
// JSON objects (spec §9, "record-stream" variant). Each line is an object
// whose keys become the document's columns on first read; columns absent
// from a given object read as null.
type JSONLDocument struct {
	path string
	cols []string
}

// NewJSONLDocument scans path once to collect the union of keys across all
// records, sorted lexically, establishing Columns().
func NewJSONLDocument(path string) (*JSONLDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fail(ErrDocument, "open jsonl %q: %v", path, err)
	}
	defer f.Close()

	seen := map[string]bool{}
	var cols []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, fail(ErrDocument, "decode jsonl record: %v", err)
		}
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fail(ErrDocument, "scan jsonl %q: %v", path, err)
	}
	sort.Strings(cols)
	return &JSONLDocument{path: path, cols: cols}, nil
}

func (d *JSONLDocument) Columns() []string { return d.cols }
func (d *JSONLDocument) Close() error      { return nil }

func (d *JSONLDocument) Iterate(ctx context.Context) (Iterator, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, fail(ErrDocument, "open jsonl %q: %v", d.path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &jsonlIterator{file: f, scanner: sc, cols: d.cols}, nil
}

type jsonlIterator struct {
	file    *os.File
	scanner *bufio.Scanner
	cols    []string
	pos     int64
}

func (it *jsonlIterator) Next(ctx context.Context) (Row, bool, error) {
	for it.scanner.Scan() {
		line := it.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(line, &obj); err != nil {
			return Row{}, false, fail(ErrDocument, "decode jsonl record: %v", err)
		}
		vals := make([]value.Scalar, len(it.cols))
		for i, c := range it.cols {
			vals[i] = toScalar(obj[c])
		}
		row := Row{Position: it.pos, Key: value.Int(it.pos), Values: vals}
		it.pos++
		return row, true, nil
	}
	if err := it.scanner.Err(); err != nil {
		return Row{}, false, fail(ErrDocument, "scan jsonl: %v", err)
	}
	return Row{}, false, nil
}

func (it *jsonlIterator) Close() error { return it.file.Close() }

func (d *JSONLDocument) SortedBy(ctx context.Context, columns []string) (Document, error) {
	it, err := d.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	idxs := make([]int, len(columns))
	for i, c := range columns {
		idx := ColumnIndex(d.cols, c)
		if idx < 0 {
			return nil, fail(ErrSchema, "key column %q not found", c)
		}
		idxs[i] = idx
	}

	var rows []Row
	for {
		row, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	if len(columns) > 0 {
		sort.SliceStable(rows, func(i, j int) bool { return rowLess(rows[i], rows[j], idxs) })
	} else {
		sort.SliceStable(rows, func(i, j int) bool { return value.Less(rows[i].Key, rows[j].Key) })
	}

	if len(idxs) > 0 {
		for i := range rows {
			rows[i].Key = keyFor(rows[i].Values, idxs)
		}
	}
	return newSortedMemoryDocument(d.cols, rows), nil
}

// toScalar converts a decoded JSON value (string, float64, bool, nil, or a
// nested structure collapsed to its string form) into a Scalar.
func toScalar(v interface{}) value.Scalar {
	switch t := v.(type) {
	case nil:
		return value.Null
	case bool:
		return value.Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return value.Int(int64(t))
		}
		return value.Float(t)
	case string:
		return value.Text(t)
	default:
		b, _ := json.Marshal(t)
		return value.Text(string(b))
	}
}
