// Package repo implements the storage backends of the receipt ledger.
// This file provides small aggregate queries used by the health endpoint.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/receipt-processor/internal/domain"
)

// CountReceipts returns the number of stored receipts.
func CountReceipts(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ReceiptRow{}).Count(&n).Error
	return n, err
}

// CountScores returns the number of receipts whose points are cached.
func CountScores(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ScoreRow{}).Count(&n).Error
	return n, err
}
