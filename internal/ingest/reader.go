// Package ingest parses rent roll and competition uploads into batches
// ready for persistence. Property management exports are messy: header
// names drift between systems, currency columns carry formatting, and
// bedroom counts arrive as labels. The readers flatten CSV and XLSX
// input into one tabular shape and the importer normalizes from there.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a parsed spreadsheet: one header row plus data rows, all as
// raw strings
type Table struct {
	Headers []string
	Rows    [][]string

	index map[string]int
}

// ReadTable parses an upload by file extension, treating anything that
// is not an Excel workbook as CSV
func ReadTable(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xls":
		return ReadXLSX(r)
	default:
		return ReadCSV(r)
	}
}

func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file contains no rows")
	}

	return newTable(records[0], records[1:]), nil
}

func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	// Read first sheet
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("Excel file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("file contains no rows")
	}

	return newTable(rows[0], rows[1:]), nil
}

func newTable(headers []string, rows [][]string) *Table {
	t := &Table{Headers: headers, Rows: rows, index: make(map[string]int, len(headers))}
	for i, h := range headers {
		key := canonicalHeader(h)
		if _, seen := t.index[key]; !seen {
			t.index[key] = i
		}
	}
	return t
}

// Cell returns the trimmed value for the first of the given header
// aliases present in the table. Rows shorter than the header count are
// treated as having empty trailing cells.
func (t *Table) Cell(row []string, aliases ...string) string {
	for _, alias := range aliases {
		if col, ok := t.index[canonicalHeader(alias)]; ok {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}
	}
	return ""
}

// HasColumn reports whether any of the aliases matches a header
func (t *Table) HasColumn(aliases ...string) bool {
	for _, alias := range aliases {
		if _, ok := t.index[canonicalHeader(alias)]; ok {
			return true
		}
	}
	return false
}

// canonicalHeader folds the header spellings different property systems
// produce: "Avg. Sq. Ft.", "Avg Sq Ft" and "avg_sq_ft" all collapse to
// the same key
func canonicalHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, ".", "")
	h = strings.ReplaceAll(h, "_", " ")
	return strings.Join(strings.Fields(h), " ")
}
