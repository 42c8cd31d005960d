package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/danu-shop/insights/internal/domain"
)

const utf8BOM = "\ufeff"

// Format is a supported tabular file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatOf picks the format from a file name extension
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unsupported extension %q", domain.ErrMalformedFile, filepath.Ext(name))
	}
}

// Loader reads spreadsheets and CSV files into tables
type Loader struct {
	// Sheet selects an xlsx sheet by name; empty means the first sheet
	Sheet string
}

// NewLoader creates a loader reading the first sheet of workbooks
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a dataset file from disk
func (l *Loader) Load(ctx context.Context, path string) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDatasetUnreadable, name, err)
	}
	defer f.Close()

	table, err := l.Read(ctx, name, f)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedFile) {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrDatasetUnreadable, name, err)
		}
		return nil, err
	}
	return table, nil
}

// Read parses a table from r, choosing the format from name
func (l *Loader) Read(ctx context.Context, name string, r io.Reader) (*domain.Table, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records [][]string
	switch format {
	case FormatXLSX:
		records, err = l.readXLSX(r)
	default:
		records, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}
	return buildTable(name, records)
}

func (l *Loader) readXLSX(r io.Reader) ([][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFile, err)
	}
	defer wb.Close()

	sheet := l.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrMalformedFile)
		}
		sheet = sheets[0]
	}

	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFile, err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFile, err)
	}

	cr := csv.NewReader(br)
	cr.Comma = DetectDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFile, err)
	}
	return records, nil
}

// DetectDelimiter picks the most frequent of comma, semicolon and tab on the header line
func DetectDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}

	counts := map[rune]int{}
	inQuotes := false
	for _, c := range string(line) {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case !inQuotes && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}

	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if counts[d] > bestN {
			best, bestN = d, counts[d]
		}
	}
	return best
}

func buildTable(name string, records [][]string) (*domain.Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", domain.ErrMalformedFile, name)
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]struct{}, len(header))
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("%w: %s has an empty header in column %d", domain.ErrMalformedFile, name, i+1)
		}
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("%w: %s has a duplicated header %q", domain.ErrMalformedFile, name, h)
		}
		seen[h] = struct{}{}
		header[i] = h
	}

	rows := make([][]string, 0, len(records)-1)
	for n, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		if len(rec) > len(header) {
			if !isBlank(rec[len(header):]) {
				return nil, fmt.Errorf("%w: %s row %d has %d fields, header has %d", domain.ErrMalformedFile, name, n+2, len(rec), len(header))
			}
			rec = rec[:len(header)]
		}
		rows = append(rows, rec)
	}

	return domain.NewTable(header, rows), nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
