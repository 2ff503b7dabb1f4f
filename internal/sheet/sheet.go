// Package sheet reads board exports (CSV or XLSX) into normalized rows.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/danielolaszy/monday-import/pkg/models"
)

// Sheet is one table of a workbook.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []*models.Row
	// HeaderRow is the 1-based row number of the header line
	HeaderRow int
}

// Workbook is every sheet of an export file.
type Workbook struct {
	Path   string
	Sheets []*Sheet
}

// Options tune header detection.
type Options struct {
	// HeaderHint is a column expected in the header row, usually the id column
	HeaderHint string
}

// Sheet returns the sheet with the given name, ignoring case. An empty name
// selects the first sheet. It returns nil when nothing matches.
func (w *Workbook) Sheet(name string) *Sheet {
	if w == nil || len(w.Sheets) == 0 {
		return nil
	}
	if name == "" {
		return w.Sheets[0]
	}
	for _, s := range w.Sheets {
		if s.Name == name {
			return s
		}
	}
	for _, s := range w.Sheets {
		if strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(name)) {
			return s
		}
	}
	return nil
}

// Names lists the sheet names in workbook order.
func (w *Workbook) Names() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Open reads a .csv or .xlsx export.
func Open(path string, opts Options) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		s, err := ReadCSV(f, name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return &Workbook{Path: path, Sheets: []*Sheet{s}}, nil
	case ".xlsx":
		return openXLSX(path, opts)
	default:
		return nil, fmt.Errorf("unsupported export format %q (use .csv or .xlsx)", filepath.Ext(path))
	}
}

// ReadCSV reads one CSV table. Row numbers are the file's line numbers.
func ReadCSV(r io.Reader, name string, opts Options) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	var lines []int
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return fromRecords(name, records, lines, opts), nil
}

func openXLSX(path string, opts Options) (*Workbook, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	wb := &Workbook{Path: path}
	for _, xs := range file.Sheets {
		records := make([][]string, 0, len(xs.Rows))
		for _, row := range xs.Rows {
			if row == nil {
				records = append(records, nil)
				continue
			}
			values := make([]string, len(row.Cells))
			for i, cell := range row.Cells {
				if cell != nil {
					values[i] = cell.String()
				}
			}
			records = append(records, values)
		}
		wb.Sheets = append(wb.Sheets, FromRecords(xs.Name, records, opts))
	}
	return wb, nil
}

// FromRecords builds a sheet from raw records. The header row is the first
// row containing opts.HeaderHint, or else the first row with at least two
// non-empty cells; board titles and group names above it are skipped. Below
// the header, blank rows, repeated header rows and group title rows are
// dropped. Row numbers are the 1-based record positions.
func FromRecords(name string, records [][]string, opts Options) *Sheet {
	return fromRecords(name, records, nil, opts)
}

func fromRecords(name string, records [][]string, lines []int, opts Options) *Sheet {
	s := &Sheet{Name: name}
	rowNumber := func(i int) int {
		if i < len(lines) {
			return lines[i]
		}
		return i + 1
	}

	cleaned := make([][]string, len(records))
	for i, rec := range records {
		cleaned[i] = make([]string, len(rec))
		for j, v := range rec {
			cleaned[i][j] = CleanCell(v)
		}
	}

	headerIdx := findHeader(cleaned, opts.HeaderHint)
	if headerIdx < 0 {
		return s
	}
	s.HeaderRow = rowNumber(headerIdx)
	s.Headers = uniqueHeaders(trimTrailingEmpty(cleaned[headerIdx]))
	headerKey := strings.Join(cleaned[headerIdx], "\x00")

	for i := headerIdx + 1; i < len(cleaned); i++ {
		rec := cleaned[i]
		filled := nonEmpty(rec)
		if filled == 0 {
			continue
		}
		if strings.Join(rec, "\x00") == headerKey {
			continue
		}
		if filled == 1 && strings.TrimSpace(first(rec)) != "" && nextIsHeader(cleaned, i, headerKey) {
			continue
		}
		s.Rows = append(s.Rows, models.NewRow(rowNumber(i), s.Headers, rec))
	}
	return s
}

func findHeader(records [][]string, hint string) int {
	if hint != "" {
		for i, rec := range records {
			for _, v := range rec {
				if strings.EqualFold(v, strings.TrimSpace(hint)) {
					return i
				}
			}
		}
	}
	for i, rec := range records {
		if nonEmpty(rec) >= 2 {
			return i
		}
	}
	return -1
}

// nextIsHeader reports whether the next non-blank record after i repeats the
// header, which marks record i as a group title.
func nextIsHeader(records [][]string, i int, headerKey string) bool {
	for j := i + 1; j < len(records); j++ {
		if nonEmpty(records[j]) == 0 {
			continue
		}
		return strings.Join(records[j], "\x00") == headerKey
	}
	return false
}

func nonEmpty(rec []string) int {
	n := 0
	for _, v := range rec {
		if v != "" {
			n++
		}
	}
	return n
}

func first(rec []string) string {
	if len(rec) == 0 {
		return ""
	}
	return rec[0]
}

func trimTrailingEmpty(rec []string) []string {
	end := len(rec)
	for end > 0 && rec[end-1] == "" {
		end--
	}
	return rec[:end]
}

// uniqueHeaders names blank headers "Column N" and suffixes duplicates.
func uniqueHeaders(rec []string) []string {
	out := make([]string, len(rec))
	seen := make(map[string]int, len(rec))
	for i, h := range rec {
		if h == "" {
			h = "Column " + strconv.Itoa(i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s (%d)", h, n)
		}
		out[i] = h
	}
	return out
}

// CleanCell removes common spreadsheet artifacts from a cell value: leading
// and trailing whitespace, the Excel formula prefix (="...") and surrounding
// quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}
