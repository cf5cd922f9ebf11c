package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

type csvLoader struct{}

func (csvLoader) CanLoad(path string) bool {
	return hasSuffix(path, ".csv", ".tsv")
}

// Load reads a delimited text file. The first record is the header and every
// following record must have the same number of fields.
func (csvLoader) Load(path string, opt Options) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return readCSV(f, path, opt)
}

func readCSV(src io.Reader, path string, opt Options) (*dataset.Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(src)
	r.Comma = delim
	r.TrimLeadingSpace = true
	// 0: every record must match the header width
	r.FieldsPerRecord = 0

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FormatError{Path: path, Err: errors.New("no header row")}
		}
		return nil, csvFormatError(path, err)
	}
	t, err := dataset.New(filepath.Base(path), headerNames(header))
	if err != nil {
		return nil, &FormatError{Path: path, Line: 1, Err: err}
	}
	maxRows := opt.MaxRows
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, csvFormatError(path, err)
		}
		if maxRows > 0 && t.Len() >= maxRows {
			continue
		}
		vals := make([]dataset.Value, len(rec))
		for i, s := range rec {
			vals[i] = dataset.ParseValue(s)
		}
		if err := t.AppendRow(vals); err != nil {
			line, _ := r.FieldPos(0)
			return nil, &FormatError{Path: path, Line: line, Err: err}
		}
	}
	return t, nil
}

func csvFormatError(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &FormatError{Path: path, Line: pe.Line, Err: pe.Err}
	}
	return &FormatError{Path: path, Err: err}
}

func sniffDelimiter(path string) rune {
	if hasSuffix(path, ".tsv") {
		return '\t'
	}
	return ','
}
