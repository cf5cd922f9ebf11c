package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

type jsonLoader struct{}

func (jsonLoader) CanLoad(path string) bool {
	return hasSuffix(path, ".json")
}

// Load reads either a list of records ([{...}, ...]) or an object of
// equal-length column arrays ({"col": [...], ...}). Columns keep first-seen
// key order.
func (jsonLoader) Load(path string, opt Options) (*dataset.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	t, err := decodeJSONTable(dec, filepath.Base(path), opt)
	if err != nil {
		return nil, &FormatError{Path: path, Line: lineAt(data, dec.InputOffset()), Err: err}
	}
	return t, nil
}

type orderedObject struct {
	keys []string
	vals map[string]any
}

func decodeJSONTable(dec *json.Decoder, name string, opt Options) (*dataset.Table, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}
		return nil, err
	}
	var t *dataset.Table
	switch tok {
	case json.Delim('['):
		t, err = decodeRecords(dec, name, opt)
	case json.Delim('{'):
		t, err = decodeColumns(dec, name, opt)
	default:
		return nil, fmt.Errorf("expected an array of records or an object of columns, got %v", tok)
	}
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return t, nil
}

func decodeRecords(dec *json.Decoder, name string, opt Options) (*dataset.Table, error) {
	var records []orderedObject
	var columns []string
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if tok != json.Delim('{') {
			return nil, fmt.Errorf("record %d: expected an object, got %v", len(records)+1, tok)
		}
		obj, err := readObject(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		for _, k := range obj.keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		if opt.MaxRows <= 0 || len(records) < opt.MaxRows {
			records = append(records, obj)
		}
	}
	if _, err := dec.Token(); err != nil { // closing ]
		return nil, err
	}
	t, err := dataset.New(name, columns)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := make([]dataset.Value, len(columns))
		for j, c := range columns {
			v, ok := rec.vals[c]
			if !ok {
				row[j] = dataset.Missing()
				continue
			}
			row[j] = jsonValue(v)
		}
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func decodeColumns(dec *json.Decoder, name string, opt Options) (*dataset.Table, error) {
	obj, err := readObject(dec)
	if err != nil {
		return nil, err
	}
	n := -1
	cols := make([][]any, len(obj.keys))
	for j, k := range obj.keys {
		arr, ok := obj.vals[k].([]any)
		if !ok {
			return nil, fmt.Errorf("column %q: expected an array", k)
		}
		if n >= 0 && len(arr) != n {
			return nil, fmt.Errorf("column %q: all columns must have the same length (%d != %d)", k, len(arr), n)
		}
		n = len(arr)
		cols[j] = arr
	}
	t, err := dataset.New(name, obj.keys)
	if err != nil {
		return nil, err
	}
	if opt.MaxRows > 0 && n > opt.MaxRows {
		n = opt.MaxRows
	}
	for i := 0; i < n; i++ {
		row := make([]dataset.Value, len(cols))
		for j := range cols {
			row[j] = jsonValue(cols[j][i])
		}
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// readObject consumes key/value pairs up to and including the closing brace;
// the opening brace must already be consumed.
func readObject(dec *json.Decoder) (orderedObject, error) {
	obj := orderedObject{vals: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return obj, err
		}
		key, ok := tok.(string)
		if !ok {
			return obj, fmt.Errorf("expected object key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return obj, err
		}
		if _, dup := obj.vals[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.vals[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return obj, err
	}
	return obj, nil
}

func jsonValue(v any) dataset.Value {
	switch x := v.(type) {
	case nil:
		return dataset.Missing()
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return dataset.Text(x.String())
		}
		return dataset.Finite(f)
	case string:
		if dataset.IsNA(x) {
			return dataset.Missing()
		}
		return dataset.Text(x)
	case bool:
		if x {
			return dataset.Text("true")
		}
		return dataset.Text("false")
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return dataset.Text(fmt.Sprint(x))
		}
		return dataset.Text(string(b))
	}
}

func lineAt(data []byte, offset int64) int {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte("\n")) + 1
}
