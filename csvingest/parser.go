// Package csvingest parses the flattened CSV rendering of a controlled
// vocabulary and resolves which column identifies each row.
package csvingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Errors returned while parsing.
var (
	ErrInvalidCSV = errors.New("invalid csv")
	ErrNoIDColumn = fmt.Errorf("%w: no identifier column", ErrInvalidCSV)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Record is one row keyed by sanitized column name.
type Record map[string]string

// Result is a parsed CSV file.
type Result struct {
	// Columns are the distinct sanitized header names in file order.
	Columns []string
	// Records holds one entry per data row. It is empty, not nil, for a
	// header-only file.
	Records []Record
	// IDColumn is the column chosen by the identifier strategies.
	IDColumn string
}

// ID returns the identifier of rec.
func (r *Result) ID(rec Record) string {
	return rec[r.IDColumn]
}

// Parser parses vocabulary CSV files.
type Parser struct {
	strategies []IDColumnStrategy
}

// NewParser creates a parser that resolves the identifier column by trying
// strategies in order. With no strategies DefaultStrategies is used.
func NewParser(strategies ...IDColumnStrategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Parser{strategies: strategies}
}

// ParseFile parses the CSV file at path.
func (p *Parser) ParseFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv file: %w", err)
	}
	res, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return res, nil
}

// Parse parses CSV content. The first row is the header and is mandatory.
func (p *Parser) Parse(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headerRow, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidCSV, err)
	}

	header := make([]string, len(headerRow))
	for i, name := range headerRow {
		header[i] = SanitizeHeader(name)
	}

	// Duplicate sanitized names keep the column of their first occurrence.
	first := make(map[string]int, len(header))
	columns := make([]string, 0, len(header))
	for i, name := range header {
		if _, dup := first[name]; dup {
			continue
		}
		first[name] = i
		columns = append(columns, name)
	}

	idColumn, ok := p.resolveIDColumn(columns)
	if !ok {
		return nil, fmt.Errorf("%w (header: %s)", ErrNoIDColumn, strings.Join(columns, ", "))
	}

	records := make([]Record, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if isBlank(row) {
			continue
		}
		rec := make(Record, len(columns))
		for _, name := range columns {
			idx := first[name]
			if idx < len(row) {
				rec[name] = row[idx]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}

	return &Result{Columns: columns, Records: records, IDColumn: idColumn}, nil
}

func (p *Parser) resolveIDColumn(columns []string) (string, bool) {
	for _, s := range p.strategies {
		if col, ok := s.Resolve(columns); ok {
			return col, true
		}
	}
	return "", false
}

// SanitizeHeader replaces dots with underscores and trims surrounding
// whitespace.
func SanitizeHeader(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, ".", "_"))
}

// sniffDelimiter picks ';' when the header line holds more semicolons than
// commas.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
