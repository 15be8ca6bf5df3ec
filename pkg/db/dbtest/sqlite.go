// Package dbtest opens isolated in-memory sqlite databases for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
)

// NewClient returns a migrated sqlite client scoped to the test. All queries
// share a single connection so concurrent transactions serialize instead of
// failing with SQLITE_LOCKED.
func NewClient(t *testing.T) *db.Client {
	t.Helper()

	dsn := "file:pos_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db.FromGorm(conn)
}

// NewPooledClient opens a migrated file-backed sqlite database through db.New
// with up to maxConns connections, so transactions on different connections
// really overlap. Lock contention surfaces as SQLITE_BUSY.
func NewPooledClient(t *testing.T, maxConns int) *db.Client {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pos.db")
	client, err := db.New(context.Background(), config.DBConfig{
		Driver:       config.DriverSQLite,
		DSN:          "file:" + path + "?_foreign_keys=on&_busy_timeout=5000",
		MaxOpenConns: maxConns,
		MaxIdleConns: maxConns,
	}, nil)
	if err != nil {
		t.Fatalf("open pooled sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.AutoMigrate(context.Background(), models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return client
}
