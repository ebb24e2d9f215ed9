package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tbourn/receipt-processor/internal/config"
	"github.com/tbourn/receipt-processor/internal/domain"
	"github.com/tbourn/receipt-processor/internal/repo"
	"github.com/tbourn/receipt-processor/internal/services"
)

// backingStore is everything the process needs from a storage backend.
type backingStore interface {
	services.ReceiptStore
	GetIdempotency(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, key, receiptID string, ttl time.Duration) (*domain.Idempotency, error)
	Close() error
}

// openStore builds the backend selected by cfg.
func openStore(cfg config.StoreConfig) (backingStore, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return repo.NewMemoryStore(), nil
	case config.BackendSQLite:
		db, err := repo.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return repo.NewSQLStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
