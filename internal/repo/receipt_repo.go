// Package repo implements the storage backends of the receipt ledger.
// This file provides the GORM repository functions for receipts and their
// memoized scores.
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run inside a transaction. They follow the "thin repository" approach: no
// scoring or memoization logic lives here, only persistence.
//
// Error semantics:
//   - Missing receipts return ErrNotFound (alias of gorm.ErrRecordNotFound).
//   - Inserting an existing receipt id returns ErrDuplicate.
//   - Writing a score for an unknown receipt returns ErrOrphanScore.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/receipt-processor/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so both backends report misses the same way.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a record with the same key already exists.
var ErrDuplicate = errors.New("duplicate")

// ErrOrphanScore is returned when a score is written for a receipt id that
// is not in the receipt store.
var ErrOrphanScore = errors.New("score for unknown receipt")

// CreateReceipt inserts r under id together with its items (in order).
func CreateReceipt(ctx context.Context, db *gorm.DB, id string, r domain.Receipt) error {
	row := toReceiptRow(id, r)
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetReceipt loads the receipt stored under id, or ErrNotFound.
func GetReceipt(ctx context.Context, db *gorm.DB, id string) (*domain.Receipt, error) {
	var row domain.ReceiptRow
	err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	r, err := fromReceiptRow(row)
	if err != nil {
		return nil, fmt.Errorf("decode receipt %s: %w", id, err)
	}
	return &r, nil
}

// GetScore returns the cached score for id. A receipt without a score row
// yields an uncomputed record and no error.
func GetScore(ctx context.Context, db *gorm.DB, id string) (domain.ScoreRecord, error) {
	var row domain.ScoreRow
	err := db.WithContext(ctx).Where("receipt_id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ScoreRecord{ReceiptID: id}, nil
	}
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	return toScoreRecord(row), nil
}

// PutScoreIfAbsent stores points for id unless a score already exists, and
// returns whichever record is retained. The first write wins.
func PutScoreIfAbsent(ctx context.Context, db *gorm.DB, id string, points int) (domain.ScoreRecord, error) {
	var out domain.ScoreRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.ReceiptRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrOrphanScore
		}

		row := domain.ScoreRow{ReceiptID: id, Points: points, ComputedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}

		var kept domain.ScoreRow
		if err := tx.Where("receipt_id = ?", id).First(&kept).Error; err != nil {
			return err
		}
		out = toScoreRecord(kept)
		return nil
	})
	return out, err
}

func toReceiptRow(id string, r domain.Receipt) domain.ReceiptRow {
	items := make([]domain.ItemRow, len(r.Items))
	for i, it := range r.Items {
		items[i] = domain.ItemRow{
			ReceiptID:        id,
			Position:         i,
			ShortDescription: it.ShortDescription,
			Price:            it.Price,
		}
	}
	return domain.ReceiptRow{
		ID:           id,
		Retailer:     r.Retailer,
		PurchaseDate: r.PurchaseDate.Format(domain.DateLayout),
		PurchaseTime: r.PurchaseTime.String(),
		Total:        r.Total,
		CreatedAt:    time.Now().UTC(),
		Items:        items,
	}
}

func fromReceiptRow(row domain.ReceiptRow) (domain.Receipt, error) {
	date, err := time.Parse(domain.DateLayout, row.PurchaseDate)
	if err != nil {
		return domain.Receipt{}, err
	}
	tod, err := domain.ParseTimeOfDay(row.PurchaseTime)
	if err != nil {
		return domain.Receipt{}, err
	}
	items := make([]domain.Item, len(row.Items))
	for i, it := range row.Items {
		items[i] = domain.Item{ShortDescription: it.ShortDescription, Price: it.Price}
	}
	return domain.Receipt{
		Retailer:     row.Retailer,
		PurchaseDate: date,
		PurchaseTime: tod,
		Items:        items,
		Total:        row.Total,
	}, nil
}

func toScoreRecord(row domain.ScoreRow) domain.ScoreRecord {
	return domain.ScoreRecord{
		ReceiptID:  row.ReceiptID,
		Status:     domain.ScoreComputed,
		Points:     row.Points,
		ComputedAt: row.ComputedAt,
	}
}

// isUniqueViolation detects primary key / unique index conflicts.
func isUniqueViolation(err error) bool {
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "constraint failed: primary key")
}
