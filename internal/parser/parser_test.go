package parser_test

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabloom-cli/internal/parser"
)

func TestUnsupportedSuffix(t *testing.T) {
	p := writeFile(t, "notes.txt", "hello")
	assert.False(t, parser.Supported(p))
	_, err := parser.Load(p, parser.DefaultOptions())
	assert.ErrorIs(t, err, parser.ErrUnsupported)
	var fe *parser.FormatError
	assert.True(t, errors.As(err, &fe))
}

func TestLoadJSONRecords(t *testing.T) {
	p := writeFile(t, "records.json", `[
  {"id": 1, "name": "a", "score": 0.5},
  {"id": 2, "score": null, "extra": true},
  {"id": 3, "name": "NA", "score": 1.5}
]`)
	tbl, err := parser.Load(p, parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "score", "extra"}, tbl.Columns())
	assert.Equal(t, 3, tbl.Len())
	assert.True(t, tbl.At(1, 1).IsMissing())
	assert.True(t, tbl.At(1, 2).IsMissing())
	assert.True(t, tbl.At(2, 1).IsMissing())
	assert.True(t, tbl.At(0, 3).IsMissing())
	assert.Equal(t, "true", tbl.At(1, 3).String())
	assert.Equal(t, []float64{1, 2, 3}, tbl.Floats(0))
}

func TestLoadJSONColumns(t *testing.T) {
	p := writeFile(t, "cols.json", `{"b": [1, 2], "a": ["x", "y"]}`)
	tbl, err := parser.Load(p, parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, tbl.Columns())
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "y", tbl.At(1, 1).String())
}

func TestLoadJSONColumnsUnequal(t *testing.T) {
	p := writeFile(t, "cols.json", `{"b": [1, 2], "a": ["x"]}`)
	_, err := parser.Load(p, parser.DefaultOptions())
	var fe *parser.FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestLoadJSONSyntaxErrorLine(t *testing.T) {
	p := writeFile(t, "broken.json", "[\n{\"a\": 1},\n{\"a\": }\n]")
	_, err := parser.Load(p, parser.DefaultOptions())
	var fe *parser.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Line)
}

func TestLoadJSONScalarRejected(t *testing.T) {
	p := writeFile(t, "scalar.json", `42`)
	_, err := parser.Load(p, parser.DefaultOptions())
	var fe *parser.FormatError
	assert.ErrorAs(t, err, &fe)
}

func writeXLSX(t *testing.T, sheets map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "book.xlsx")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range sheets {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

const testWorkbook = `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets>
<sheet name="Summary" sheetId="1" r:id="rId1"/>
<sheet name="Data" sheetId="2" r:id="rId2"/>
</sheets>
</workbook>`

const testRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Target="/xl/worksheets/sheet2.xml"/>
</Relationships>`

const testShared = `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<si><t>name</t></si><si><t>value</t></si><si><t>alpha</t></si>
</sst>`

const testSheet1 = `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="inlineStr"><is><t>only</t></is></c></row>
<row r="2"><c r="A2"><v>7</v></c></row>
</sheetData></worksheet>`

const testSheet2 = `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>1.5</v></c></row>
<row r="3"><c r="B3"><v>2.5</v></c></row>
<row r="4"><c r="A4" t="inlineStr"><is><t>beta</t></is></c></row>
</sheetData></worksheet>`

func testBook(t *testing.T) string {
	return writeXLSX(t, map[string]string{
		"xl/workbook.xml":            testWorkbook,
		"xl/_rels/workbook.xml.rels": testRels,
		"xl/sharedStrings.xml":       testShared,
		"xl/worksheets/sheet1.xml":   testSheet1,
		"xl/worksheets/sheet2.xml":   testSheet2,
	})
}

func TestLoadXLSXByName(t *testing.T) {
	opt := parser.DefaultOptions()
	opt.Sheet = "data"
	tbl, err := parser.Load(testBook(t), opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "value"}, tbl.Columns())
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "alpha", tbl.At(0, 0).String())
	assert.True(t, tbl.At(1, 0).IsMissing())
	assert.True(t, tbl.At(2, 1).IsMissing())
	v, ok := tbl.At(1, 1).Float()
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)
}

func TestLoadXLSXDefaultSheet(t *testing.T) {
	tbl, err := parser.Load(testBook(t), parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, tbl.Columns())
	assert.Equal(t, []float64{7}, tbl.Floats(0))
}

func TestLoadXLSXUnknownSheet(t *testing.T) {
	opt := parser.DefaultOptions()
	opt.Sheet = "missing"
	_, err := parser.Load(testBook(t), opt)
	var fe *parser.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "Summary, Data")
}

func TestLoadXLSXNotAZip(t *testing.T) {
	p := writeFile(t, "fake.xlsx", "not a zip")
	_, err := parser.Load(p, parser.DefaultOptions())
	var fe *parser.FormatError
	assert.ErrorAs(t, err, &fe)
}
