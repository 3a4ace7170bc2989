package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// CellKind identifies the type of value held by a cell
type CellKind string

const (
	CellAbsent   CellKind = "absent"
	CellText     CellKind = "text"
	CellNumber   CellKind = "number"
	CellDateTime CellKind = "datetime"
)

// CellValue is a single typed cell of a loaded row
type CellValue struct {
	Kind   CellKind  `json:"kind"`
	Text   string    `json:"text,omitempty"`
	Number float64   `json:"number,omitempty"`
	Time   time.Time `json:"time,omitempty"`
}

// MarshalJSON writes only the field that belongs to the cell's kind
func (c CellValue) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind   CellKind   `json:"kind"`
		Text   string     `json:"text,omitempty"`
		Number *float64   `json:"number,omitempty"`
		Time   *time.Time `json:"time,omitempty"`
	}{Kind: c.Kind}

	switch c.Kind {
	case CellText:
		out.Text = c.Text
	case CellNumber:
		out.Number = &c.Number
	case CellDateTime:
		out.Time = &c.Time
	}
	return json.Marshal(out)
}

// Text returns a text cell
func Text(s string) CellValue {
	return CellValue{Kind: CellText, Text: s}
}

// Number returns a numeric cell
func Number(f float64) CellValue {
	return CellValue{Kind: CellNumber, Number: f}
}

// DateTime returns a date-time cell
func DateTime(t time.Time) CellValue {
	return CellValue{Kind: CellDateTime, Time: t}
}

// Absent returns an empty cell
func Absent() CellValue {
	return CellValue{Kind: CellAbsent}
}

// IsAbsent reports whether the cell holds no usable value.
// Text made only of whitespace counts as absent.
func (c CellValue) IsAbsent() bool {
	switch c.Kind {
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	case CellNumber, CellDateTime:
		return false
	default:
		return true
	}
}

// IsDateTime reports whether the cell holds a date-time value
func (c CellValue) IsDateTime() bool {
	return c.Kind == CellDateTime
}

// Format renders the cell as display text. Date-times use dateLayout.
func (c CellValue) Format(dateLayout string) string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDateTime:
		return c.Time.Format(dateLayout)
	default:
		return ""
	}
}

// String renders the cell using the default date layout
func (c CellValue) String() string {
	return c.Format(DefaultDateLayout)
}

// DefaultDateLayout matches the en-US short calendar date (e.g. 3/14/2025)
const DefaultDateLayout = "1/2/2006"

// Row represents one record of loaded tabular data
type Row struct {
	Index int                  `json:"index"`
	Cells map[string]CellValue `json:"cells"`
}

// NewRow builds a row from plain Go values.
// Supported values: string, numeric types, time.Time, CellValue and nil.
func NewRow(index int, values map[string]interface{}) Row {
	cells := make(map[string]CellValue, len(values))
	for column, value := range values {
		cells[column] = CellFromValue(value)
	}
	return Row{Index: index, Cells: cells}
}

// Get returns the cell stored under column
func (r Row) Get(column string) (CellValue, bool) {
	cell, ok := r.Cells[column]
	return cell, ok
}

// Columns returns the column names present on the row
func (r Row) Columns() []string {
	columns := make([]string, 0, len(r.Cells))
	for column := range r.Cells {
		columns = append(columns, column)
	}
	return columns
}

// CellFromValue converts a Go value into a cell
func CellFromValue(value interface{}) CellValue {
	switch v := value.(type) {
	case nil:
		return Absent()
	case CellValue:
		return v
	case string:
		return Text(v)
	case []byte:
		return Text(string(v))
	case time.Time:
		return DateTime(v)
	case *time.Time:
		if v == nil {
			return Absent()
		}
		return DateTime(*v)
	case int:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case float32:
		return Number(float64(v))
	case float64:
		return Number(v)
	case bool:
		return Text(strconv.FormatBool(v))
	default:
		return Absent()
	}
}
