package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(p string) bool {
	return hasSuffix(p, ".xlsx")
}

// Load reads one worksheet of an Office Open XML workbook. The sheet is
// selected by Options.Sheet (case-insensitive name) or Options.SheetIndex
// (1-based), defaulting to the first sheet.
func (xlsxLoader) Load(p string, opt Options) (*dataset.Table, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, &FormatError{Path: p, Err: fmt.Errorf("open workbook: %w", err)}
	}
	wb := workbook{zr: zr}
	target, err := wb.sheetPath(opt.Sheet, opt.SheetIndex)
	if err != nil {
		return nil, &FormatError{Path: p, Err: err}
	}
	sheetXML := wb.file(target)
	if sheetXML == nil {
		return nil, &FormatError{Path: p, Err: fmt.Errorf("worksheet %s missing from archive", target)}
	}
	rows := newSheetRows(sheetXML, parseSharedStrings(wb.file("xl/sharedStrings.xml")))

	header, line, ok := rows.Next()
	if !ok {
		if rows.err != nil {
			return nil, &FormatError{Path: p, Err: rows.err}
		}
		return nil, &FormatError{Path: p, Err: errors.New("no header row")}
	}
	name := filepath.Base(p)
	t, err := dataset.New(name, headerNames(header))
	if err != nil {
		return nil, &FormatError{Path: p, Line: line, Err: err}
	}
	width := t.Width()
	for {
		cells, line, ok := rows.Next()
		if !ok {
			break
		}
		if opt.MaxRows > 0 && t.Len() >= opt.MaxRows {
			break
		}
		if len(cells) > width {
			for _, extra := range cells[width:] {
				if strings.TrimSpace(extra) != "" {
					return nil, &FormatError{Path: p, Line: line, Err: fmt.Errorf("row has %d cells, header has %d", len(cells), width)}
				}
			}
			cells = cells[:width]
		}
		vals := make([]dataset.Value, width)
		for j := range vals {
			if j < len(cells) {
				vals[j] = dataset.ParseValue(cells[j])
			} else {
				vals[j] = dataset.Missing()
			}
		}
		if err := t.AppendRow(vals); err != nil {
			return nil, &FormatError{Path: p, Line: line, Err: err}
		}
	}
	if rows.err != nil {
		return nil, &FormatError{Path: p, Err: rows.err}
	}
	return t, nil
}

type workbook struct {
	zr *zip.Reader
}

type sheetEntry struct {
	name string
	id   int
	rid  string
}

func (w workbook) file(name string) []byte {
	for _, f := range w.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

func (w workbook) sheetPath(name string, index int) (string, error) {
	sheets := parseWorkbook(w.file("xl/workbook.xml"))
	rels := parseRelationships(w.file("xl/_rels/workbook.xml.rels"))
	if name != "" {
		names := make([]string, 0, len(sheets))
		for _, s := range sheets {
			if strings.EqualFold(s.name, name) {
				if rel, ok := rels[s.rid]; ok {
					return relPath(rel), nil
				}
			}
			names = append(names, s.name)
		}
		return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(names, ", "))
	}
	if index <= 0 {
		index = 1
	}
	for _, s := range sheets {
		if s.id == index {
			if rel, ok := rels[s.rid]; ok {
				return relPath(rel), nil
			}
		}
	}
	if index <= len(sheets) {
		if rel, ok := rels[sheets[index-1].rid]; ok {
			return relPath(rel), nil
		}
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", index)), nil
}

func parseWorkbook(data []byte) []sheetEntry {
	var out []sheetEntry
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sheet" {
			continue
		}
		var s sheetEntry
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.name = a.Value
			case "sheetId":
				s.id, _ = strconv.Atoi(a.Value)
			case "id":
				s.rid = a.Value
			}
		}
		out = append(out, s)
	}
}

func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	}
}

// relPath maps a relationship target ("worksheets/sheet1.xml" or
// "/xl/worksheets/sheet1.xml") to its archive entry name.
func relPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}

func parseSharedStrings(data []byte) []string {
	var out []string
	var sb strings.Builder
	inText := false
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				sb.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inText = false
			case "si":
				out = append(out, sb.String())
			}
		case xml.CharData:
			if inText {
				sb.Write(se)
			}
		}
	}
}

// sheetRows streams <row> elements from a worksheet. Cells without an "r"
// reference take the next column after the previous cell.
type sheetRows struct {
	dec    *xml.Decoder
	shared []string
	rowNum int
	err    error
}

func newSheetRows(data []byte, shared []string) *sheetRows {
	return &sheetRows{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Next returns the cells of the next row and its 1-based sheet row number.
func (r *sheetRows) Next() ([]string, int, bool) {
	var cells []string
	inRow := false
	col := -1
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			return nil, 0, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch {
			case se.Name.Local == "row":
				inRow = true
				cells = nil
				col = -1
				r.rowNum++
				for _, a := range se.Attr {
					if a.Name.Local == "r" {
						if n, err := strconv.Atoi(a.Value); err == nil {
							r.rowNum = n
						}
					}
				}
			case inRow && se.Name.Local == "c":
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				if idx := columnIndex(ref); idx >= 0 {
					col = idx
				} else {
					col++
				}
				val, err := r.cellValue(typ)
				if err != nil {
					r.err = err
					return nil, 0, false
				}
				for len(cells) <= col {
					cells = append(cells, "")
				}
				cells[col] = val
			}
		case xml.EndElement:
			if inRow && se.Name.Local == "row" {
				return cells, r.rowNum, true
			}
		}
	}
}

// cellValue consumes the rest of a <c> element and resolves shared strings.
func (r *sheetRows) cellValue(typ string) (string, error) {
	var val string
	capture := false
	var sb strings.Builder
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return "", err
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				capture = true
				sb.Reset()
			}
		case xml.CharData:
			if capture {
				sb.Write(se)
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "v", "t":
				capture = false
				val = sb.String()
			case "c":
				if typ == "s" {
					idx, err := strconv.Atoi(strings.TrimSpace(val))
					if err != nil || idx < 0 || idx >= len(r.shared) {
						return "", nil
					}
					return r.shared[idx], nil
				}
				if typ == "b" {
					if val == "1" {
						return "TRUE", nil
					}
					return "FALSE", nil
				}
				return val, nil
			}
		}
	}
}

// columnIndex converts a cell reference like "C12" to a 0-based column, or -1.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}
