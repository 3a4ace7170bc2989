package repository

import (
	"context"

	"bulksender/internal/models"
)

// ContactRepository reads and writes contact lists stored as plain tables.
// Every column of a table becomes a row cell named after the column.
type ContactRepository interface {
	LoadRows(ctx context.Context, table, orderBy string) ([]models.Row, error)
	Columns(ctx context.Context, table string) ([]string, error)
	EnsureTable(ctx context.Context, table string, columns []string) error
	ImportRows(ctx context.Context, table string, columns []string, rows []models.Row) (int, error)
}
