// Package rowsource loads campaign rows from files.
package rowsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"bulksender/internal/models"
)

// ErrNoHeader is returned when the input has no header row
var ErrNoHeader = errors.New("csv has no header row")

// Options controls how cell text is typed
type Options struct {
	// ParseNumbers turns cells that parse as numbers into number cells
	ParseNumbers bool
	// DateLayouts are tried in order; the first match makes a date-time cell
	DateLayouts []string
	// Comma is the field delimiter; zero means ','
	Comma rune
}

// Table is a loaded CSV file
type Table struct {
	Columns []string
	Rows    []models.Row
}

// LoadCSVFile opens path and loads it with LoadCSV
func LoadCSVFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	table, err := LoadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// LoadCSV reads a header row followed by data rows. Empty cells are absent;
// rows keep their file order and are indexed from zero.
func LoadCSV(r io.Reader, opts Options) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		columns[i] = name
	}

	table := &Table{Columns: columns, Rows: []models.Row{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(table.Rows)+1, err)
		}
		if blankRecord(record) {
			continue
		}

		cells := make(map[string]models.CellValue, len(columns))
		for i, column := range columns {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			cells[column] = opts.cell(value)
		}
		table.Rows = append(table.Rows, models.Row{Index: len(table.Rows), Cells: cells})
	}

	return table, nil
}

func (o Options) cell(value string) models.CellValue {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return models.Absent()
	}
	if o.ParseNumbers {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return models.Number(f)
		}
	}
	for _, layout := range o.DateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return models.DateTime(t)
		}
	}
	return models.Text(value)
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
