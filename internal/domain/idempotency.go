package domain

import "time"

// Idempotency maps a client-supplied Idempotency-Key to the receipt id that
// the first request with that key produced. Replays within the TTL window get
// the same id back instead of creating a second receipt.
type Idempotency struct {
	Key       string    `gorm:"type:varchar(200);primaryKey"`
	ReceiptID string    `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency_keys" }

// Expired reports whether the record is no longer replayable at now.
func (i Idempotency) Expired(now time.Time) bool { return !now.Before(i.ExpiresAt) }
