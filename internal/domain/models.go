// Package domain also carries the persistence rows used by the SQLite
// backend. They mirror Receipt/Item/ScoreRecord and are mapped with GORM.
package domain

import (
	"time"
)

// ReceiptRow is the stored form of a Receipt.
//
// Fields:
//   - ID: opaque receipt id (primary key).
//   - PurchaseDate / PurchaseTime: kept in their wire layouts.
//   - Total: fixed-point string, never converted to float for storage.
//   - Items: ordered children (see ItemRow.Position).
type ReceiptRow struct {
	ID           string    `gorm:"type:varchar(64);primaryKey"`
	Retailer     string    `gorm:"type:varchar(255);not null"`
	PurchaseDate string    `gorm:"type:char(10);not null"`
	PurchaseTime string    `gorm:"type:varchar(8);not null"`
	Total        string    `gorm:"type:varchar(32);not null"`
	CreatedAt    time.Time `gorm:"not null;index"`

	Items []ItemRow `gorm:"foreignKey:ReceiptID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReceiptRow.
func (ReceiptRow) TableName() string { return "receipts" }

// ItemRow is one line item of a stored receipt.
type ItemRow struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	ReceiptID        string `gorm:"type:varchar(64);not null;uniqueIndex:ux_receipt_item_pos,priority:1"`
	Position         int    `gorm:"not null;uniqueIndex:ux_receipt_item_pos,priority:2"`
	ShortDescription string `gorm:"type:varchar(255);not null"`
	Price            string `gorm:"type:varchar(32);not null"`
}

// TableName returns the database table name for ItemRow.
func (ItemRow) TableName() string { return "receipt_items" }

// ScoreRow is a memoized point value. Its presence means "computed"; a
// receipt without a row has not been scored yet.
type ScoreRow struct {
	ReceiptID  string    `gorm:"type:varchar(64);primaryKey"`
	Points     int       `gorm:"not null;check:points >= 0"`
	ComputedAt time.Time `gorm:"not null"`

	Receipt ReceiptRow `gorm:"foreignKey:ReceiptID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ScoreRow.
func (ScoreRow) TableName() string { return "receipt_scores" }
