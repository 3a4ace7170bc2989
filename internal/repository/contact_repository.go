package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"bulksender/internal/models"
)

// ErrTableNotFound is returned when a contact table does not exist
var ErrTableNotFound = errors.New("contact table not found")

type contactRepository struct {
	db *sql.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *sql.DB) ContactRepository {
	return &contactRepository{db: db}
}

// LoadRows reads every row of table. Rows are ordered by the orderBy column
// when given, otherwise they come back in the table's physical order.
func (r *contactRepository) LoadRows(ctx context.Context, table, orderBy string) ([]models.Row, error) {
	name, err := quoteTable(table)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + name
	if orderBy != "" {
		query += " ORDER BY " + pq.QuoteIdentifier(orderBy)
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows from %s: %w", table, mapTableError(err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	numeric := numericColumns(rows)

	result := []models.Row{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		targets := make([]interface{}, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		cells := make(map[string]models.CellValue, len(columns))
		for i, column := range columns {
			cells[column] = toCell(values[i], i < len(numeric) && numeric[i])
		}
		result = append(result, models.Row{Index: len(result), Cells: cells})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// Columns lists the column names of table in ordinal order
func (r *contactRepository) Columns(ctx context.Context, table string) ([]string, error) {
	schema, name := splitTable(table)
	if name == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	if schema == "" {
		schema = "public"
	}

	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := r.db.QueryContext(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()

	columns := []string{}
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	return columns, nil
}

// EnsureTable creates table with a serial id and one text column per name,
// unless it already exists
func (r *contactRepository) EnsureTable(ctx context.Context, table string, columns []string) error {
	name, err := quoteTable(table)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}

	defs := []string{"id SERIAL PRIMARY KEY"}
	for _, column := range columns {
		if column == "id" {
			continue
		}
		defs = append(defs, pq.QuoteIdentifier(column)+" TEXT")
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// ImportRows bulk-loads rows into table with COPY inside one transaction
func (r *contactRepository) ImportRows(ctx context.Context, table string, columns []string, rows []models.Row) (int, error) {
	schema, name := splitTable(table)
	if name == "" {
		return 0, fmt.Errorf("table name cannot be empty")
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("at least one column is required")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	copyStmt := pq.CopyIn(name, columns...)
	if schema != "" {
		copyStmt = pq.CopyInSchema(schema, name, columns...)
	}

	stmt, err := tx.PrepareContext(ctx, copyStmt)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare copy: %w", err)
	}

	for _, row := range rows {
		args := make([]interface{}, len(columns))
		for i, column := range columns {
			cell, _ := row.Get(column)
			args[i] = fromCell(cell)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("failed to copy row %d: %w", row.Index, err)
		}
	}

	// An empty exec flushes the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	return len(rows), nil
}

func splitTable(table string) (schema, name string) {
	table = strings.TrimSpace(table)
	if i := strings.IndexByte(table, '.'); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "", table
}

func quoteTable(table string) (string, error) {
	schema, name := splitTable(table)
	if name == "" {
		return "", fmt.Errorf("table name cannot be empty")
	}
	if schema == "" {
		return pq.QuoteIdentifier(name), nil
	}
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name), nil
}

// numericColumns flags NUMERIC/DECIMAL columns, which the driver returns as text
func numericColumns(rows *sql.Rows) []bool {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil
	}
	numeric := make([]bool, len(types))
	for i, t := range types {
		switch strings.ToUpper(t.DatabaseTypeName()) {
		case "NUMERIC", "DECIMAL":
			numeric[i] = true
		}
	}
	return numeric
}

// toCell maps a scanned SQL value to a cell: NULL is absent, integers,
// floats and numerics are numbers, timestamps are date-times, the rest is text
func toCell(value interface{}, numeric bool) models.CellValue {
	if b, ok := value.([]byte); ok && numeric {
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return models.Number(f)
		}
	}
	return models.CellFromValue(value)
}

func fromCell(cell models.CellValue) interface{} {
	switch cell.Kind {
	case models.CellText:
		return cell.Text
	case models.CellNumber:
		return cell.Number
	case models.CellDateTime:
		return cell.Time
	default:
		return nil
	}
}

func mapTableError(err error) error {
	var pqErr *pq.Error
	// 42P01: undefined_table
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
		return ErrTableNotFound
	}
	return err
}
