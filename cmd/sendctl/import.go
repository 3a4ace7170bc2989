package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bulksender/internal/app"
	"bulksender/internal/rowsource"
)

var importTable string

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Copy a CSV contact list into a database table",
	Long: `Creates the table when it does not exist (one text column per CSV header)
and bulk-loads every row, so the list can be used with send --table.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importTable, "table", "contacts", "destination table")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return fmt.Errorf("import needs a database: set POSTGRES_HOST")
	}

	table, err := rowsource.LoadCSVFile(args[0], rowsource.Options{})
	if err != nil {
		return err
	}

	rt, err := app.Open(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	contacts := rt.Contacts()
	if err := contacts.EnsureTable(cmd.Context(), importTable, table.Columns); err != nil {
		return err
	}

	// The table may predate this file; every CSV column must exist in it.
	existing, err := contacts.Columns(cmd.Context(), importTable)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, column := range existing {
		known[column] = true
	}

	columns := make([]string, 0, len(table.Columns))
	for _, column := range table.Columns {
		if column == "id" {
			continue
		}
		if !known[column] {
			return fmt.Errorf("table %s has no column %q", importTable, column)
		}
		columns = append(columns, column)
	}
	n, err := contacts.ImportRows(cmd.Context(), importTable, columns, table.Rows)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s\n", n, importTable)
	return nil
}
