package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"bulksender/internal/config"
	"bulksender/internal/models"
	"bulksender/internal/repository"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Command-line flags
var (
	contactsCount = flag.Int("contacts", 12, "Number of contacts to create")
	tableName     = flag.String("table", "contacts", "Contact table to create and fill")
	clearData     = flag.Bool("clear", false, "Drop the contact table before inserting")
	showHelp      = flag.Bool("help", false, "Show usage information")
)

// contactColumns are the typed columns of the seeded table, in insert order
var contactColumns = []string{"name", "phone", "city", "balance", "due_date"}

func main() {
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	printInfo("=== Bulk Sender Contact Seeder ===\n")

	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}
	if !cfg.Database.Enabled() {
		printError("POSTGRES_HOST is not set")
		os.Exit(1)
	}

	printInfo("Connecting to database...")
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		printError(fmt.Sprintf("Failed to open database connection: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		printError(fmt.Sprintf("Failed to ping database: %v", err))
		os.Exit(1)
	}
	printSuccess("✓ Connected to database\n")

	ctx := context.Background()

	if *clearData {
		if err := dropTable(ctx, db, *tableName); err != nil {
			printError(fmt.Sprintf("Failed to clear seed data: %v", err))
			os.Exit(1)
		}
	}

	if err := createTable(ctx, db, *tableName); err != nil {
		printError(fmt.Sprintf("Failed to create table: %v", err))
		os.Exit(1)
	}

	contacts := repository.NewContactRepository(db)
	created, err := contacts.ImportRows(ctx, *tableName, contactColumns, buildContacts(*contactsCount))
	if err != nil {
		printError(fmt.Sprintf("Failed to seed contacts: %v", err))
		os.Exit(1)
	}

	printInfo("\n=== Seeding Summary ===")
	printSuccess(fmt.Sprintf("✓ Contacts created: %d", created))
	printInfo(fmt.Sprintf("\nTry: sendctl preview --table %s --order-by id --column phone -t \"Hi {name}, your balance is {balance}, due {due_date}\"", *tableName))
}

// dropTable removes the contact table
func dropTable(ctx context.Context, db *sql.DB, table string) error {
	printWarning(fmt.Sprintf("Dropping table %s...", table))

	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}

	printSuccess("✓ Seed data cleared\n")
	return nil
}

// createTable creates a contact table with typed columns so that loaded rows
// carry text, number and date cells
func createTable(ctx context.Context, db *sql.DB, table string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			name TEXT,
			phone TEXT,
			city TEXT,
			balance NUMERIC(12, 2),
			due_date DATE
		)
	`, quote(table))

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// buildContacts generates contact rows; some have no phone or no city
func buildContacts(count int) []models.Row {
	names := []string{"Michael", "Sophia", "James", "Olivia", "Daniel", "Emma", "Benjamin", "Ava", "Lucas", "Mia", "Noah", "Isabella"}
	cities := []string{"Nairobi", "Mombasa", "Kisumu", "Eldoret", "Nakuru", "Thika"}
	due := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	rows := make([]models.Row, 0, count)
	for i := 1; i <= count; i++ {
		values := map[string]interface{}{
			"name":     names[i%len(names)],
			"balance":  float64(i*125) + 0.5,
			"due_date": due.AddDate(0, 0, i),
		}

		// Every seventh contact has no phone number and is skipped when sending
		if i%7 != 0 {
			values["phone"] = fmt.Sprintf("+254 700 010 %03d", i)
		}
		if i%4 != 0 {
			values["city"] = cities[i%len(cities)]
		}

		rows = append(rows, models.NewRow(i-1, values))
	}

	printInfo(fmt.Sprintf("Seeding %d contacts...", count))
	return rows
}

func quote(table string) string {
	return pq.QuoteIdentifier(table)
}

// printSuccess prints a success message in green
func printSuccess(msg string) {
	fmt.Printf("%s%s%s\n", colorGreen, msg, colorReset)
}

// printError prints an error message in red
func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, msg, colorReset)
}

// printInfo prints an info message in cyan
func printInfo(msg string) {
	fmt.Printf("%s%s%s\n", colorCyan, msg, colorReset)
}

// printWarning prints a warning message in yellow
func printWarning(msg string) {
	fmt.Printf("%s%s%s\n", colorYellow, msg, colorReset)
}

// printUsage displays usage information
func printUsage() {
	printInfo("=== Bulk Sender Contact Seeder ===\n")
	fmt.Println("Usage: go run scripts/seed.go [flags]")
	fmt.Println("\nFlags:")
	flag.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  go run scripts/seed.go")
	fmt.Println("  go run scripts/seed.go -contacts=50")
	fmt.Println("  go run scripts/seed.go -clear -table=spring_list")
	fmt.Println("\nNotes:")
	fmt.Println("  - Every seventh contact has no phone number, to exercise skipped rows")
	fmt.Println("  - Running without -clear appends another batch of contacts")
}
