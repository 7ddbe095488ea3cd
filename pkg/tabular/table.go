package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Table is a normalized view over a CSV or Excel sheet: a header row plus
// data rows padded (or trimmed) to the header width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Sheet names that hold no data and are skipped when picking the data sheet.
var metadataSheets = map[string]bool{
	"info":     true,
	"metadata": true,
	"about":    true,
	"readme":   true,
	"notes":    true,
}

// LoadFile routes to the CSV or Excel loader based on the file extension.
func LoadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		return LoadCSV(f, strings.EqualFold(filepath.Ext(path), ".tsv"))
	case ".xlsx", ".xls":
		return LoadExcel(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

// LoadCSV parses CSV (or TSV) content into a Table.
func LoadCSV(r io.Reader, isTSV bool) (*Table, error) {
	reader := csv.NewReader(r)
	if isTSV {
		reader.Comma = '\t'
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("empty CSV input")
	}
	return newTable(all), nil
}

// LoadExcel opens an Excel workbook and reads the first data sheet.
func LoadExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in Excel file %s", path)
	}

	var sheetName string
	for _, sheet := range sheets {
		if !metadataSheets[strings.ToLower(sheet)] {
			sheetName = sheet
			break
		}
	}
	// All sheets looked like metadata; the last one is the best bet for data.
	if sheetName == "" {
		sheetName = sheets[len(sheets)-1]
	}
	log.Debug().Str("path", path).Str("sheet", sheetName).Int("sheets", len(sheets)).Msg("selected Excel sheet")

	all, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheetName, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("empty Excel sheet %s", sheetName)
	}
	return newTable(all), nil
}

func newTable(all [][]string) *Table {
	headers := make([]string, len(all[0]))
	for i, h := range all[0] {
		headers[i] = strings.TrimSpace(h)
	}
	rows := all[1:]
	for i, row := range rows {
		if len(row) < len(headers) {
			for j := len(row); j < len(headers); j++ {
				rows[i] = append(rows[i], "")
			}
		} else if len(row) > len(headers) {
			rows[i] = row[:len(headers)]
		}
	}
	return &Table{Headers: headers, Rows: rows}
}

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.Headers) }

// Cell returns the trimmed cell value, or "" when out of bounds.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// FindExact returns the index of the first header equal (case-insensitive)
// to any of the given names, or -1.
func (t *Table) FindExact(names ...string) int {
	for i, h := range t.Headers {
		for _, name := range names {
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}
	return -1
}

// FindContains returns the index of the first header containing
// (case-insensitive) any of the given substrings, or -1.
func (t *Table) FindContains(substrs ...string) int {
	for i, h := range t.Headers {
		lower := strings.ToLower(h)
		for _, s := range substrs {
			if strings.Contains(lower, strings.ToLower(s)) {
				return i
			}
		}
	}
	return -1
}

// ScanForLabel scans every cell for a value equal (case-insensitive) to
// label and returns the trimmed content of the cell immediately to its
// right. The second return is false when the label is not found or sits in
// the last column.
func (t *Table) ScanForLabel(label string) (string, bool) {
	for i := range t.Rows {
		for j := range t.Rows[i] {
			if strings.EqualFold(strings.TrimSpace(t.Rows[i][j]), label) && j+1 < len(t.Rows[i]) {
				return t.Cell(i, j+1), true
			}
		}
	}
	return "", false
}
