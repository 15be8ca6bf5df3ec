package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestItemsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "create_items")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS items",
		"price NUMERIC(10,2) NOT NULL",
		"CHECK (current_stock >= 0)",
		"CHECK (category IN ('Food', 'Drink', 'Other'))",
		"DROP TABLE IF EXISTS items",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestTransactionsMigrationCascades(t *testing.T) {
	content := readMigration(t, "create_transactions")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS transactions",
		"FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE",
		"CHECK (quantity >= 1)",
		"idx_transactions_transaction_date",
		"DROP TABLE IF EXISTS transactions",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestTransactionsTotalPriceIsWidened(t *testing.T) {
	content := readMigration(t, "widen_transactions_total_price")
	for _, sub := range []string{
		"ALTER COLUMN total_price TYPE NUMERIC(20,2)",
		"ALTER COLUMN total_price TYPE NUMERIC(10,2)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	entries, err := embedded.ReadDir(embeddedDir)
	if err != nil {
		t.Fatalf("read embedded: %v", err)
	}
	onDisk, _ := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if len(entries) != len(onDisk) {
		t.Fatalf("embedded %d migrations, disk has %d", len(entries), len(onDisk))
	}
}

func TestCreateAndValidate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add Item SKU!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260301120000_add_item_sku.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if _, err := createSQLMigration(dir, "add item sku", now); err == nil {
		t.Fatal("expected duplicate migration to fail")
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}
