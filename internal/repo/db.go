// Package repo implements the storage backends of the receipt ledger: an
// in-memory map store and a GORM store backed by SQLite (pure Go driver).
// This file contains database bootstrapping helpers and schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/receipt-processor/internal/domain"
)

// DefaultDSN keeps the database in memory for the lifetime of the process.
const DefaultDSN = "file:receipts?mode=memory&cache=shared"

// OpenSQLite opens (or creates) a SQLite database, applies PRAGMAs, tunes the
// pool, and installs the OpenTelemetry tracing plugin.
func OpenSQLite(path string) (*gorm.DB, error) {
	memory := isMemoryDSN(path)

	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if !memory && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	if !memory {
		db.Exec("PRAGMA journal_mode=WAL;")
		db.Exec("PRAGMA synchronous=NORMAL;")
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		if memory {
			// A shared-cache memory database lives only while a connection is
			// open, and concurrent writers hit table locks busy_timeout can't wait on.
			sqlDB.SetMaxOpenConns(1)
			sqlDB.SetMaxIdleConns(1)
			sqlDB.SetConnMaxIdleTime(0)
			sqlDB.SetConnMaxLifetime(0)
		} else {
			sqlDB.SetMaxOpenConns(10)
			sqlDB.SetMaxIdleConns(10)
			sqlDB.SetConnMaxIdleTime(5 * time.Minute)
			sqlDB.SetConnMaxLifetime(30 * time.Minute)
		}
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.ReceiptRow{},
		&domain.ItemRow{},
		&domain.ScoreRow{},
		&domain.Idempotency{},
	)
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
