package catalog

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row maps a column header to the raw cell text of one row.
type Row map[string]string

// Sheet is one named tabular sheet: ordered column headers plus rows
// keyed by header.
type Sheet struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Workbook is the tabular data source the builder ingests. The xlsx
// implementation below is the production one; tests supply in-memory
// fakes.
type Workbook interface {
	SheetNames() []string
	Sheet(name string) (Sheet, error)
}

// FindColumn resolves a column fuzzily: the first header containing the
// substring, case-insensitively, wins. A miss returns "", not an error;
// non-essential columns are simply absent.
func (s Sheet) FindColumn(substr string) string {
	needle := strings.ToLower(strings.TrimSpace(substr))
	for _, col := range s.Columns {
		if strings.Contains(strings.ToLower(col), needle) {
			return col
		}
	}
	return ""
}

type xlsxWorkbook struct {
	file *excelize.File
}

// OpenWorkbook reads an xlsx workbook from r.
func OpenWorkbook(r io.Reader) (Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &xlsxWorkbook{file: f}, nil
}

// OpenWorkbookFile reads an xlsx workbook from a local path.
func OpenWorkbookFile(path string) (Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &xlsxWorkbook{file: f}, nil
}

func (w *xlsxWorkbook) SheetNames() []string {
	return w.file.GetSheetList()
}

func (w *xlsxWorkbook) Sheet(name string) (Sheet, error) {
	rows, err := w.file.GetRows(name)
	if err != nil {
		return Sheet{}, fmt.Errorf("read sheet %s: %w", name, err)
	}
	sheet := Sheet{Name: name}
	if len(rows) == 0 {
		return sheet, nil
	}

	for _, header := range rows[0] {
		sheet.Columns = append(sheet.Columns, strings.TrimSpace(header))
	}
	for _, cells := range rows[1:] {
		row := make(Row, len(sheet.Columns))
		empty := true
		for i, col := range sheet.Columns {
			if col == "" {
				continue
			}
			var cell string
			if i < len(cells) {
				cell = strings.TrimSpace(cells[i])
			}
			if cell != "" {
				empty = false
			}
			row[col] = cell
		}
		if empty {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}
