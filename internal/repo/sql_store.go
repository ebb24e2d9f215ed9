package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/receipt-processor/internal/domain"
)

// SQLStore adapts the repository free functions to the method set the
// ledger expects, bound to a single *gorm.DB handle.
type SQLStore struct {
	DB *gorm.DB
}

// NewSQLStore returns a SQLStore over db. Call AutoMigrate first.
func NewSQLStore(db *gorm.DB) *SQLStore { return &SQLStore{DB: db} }

// CreateReceipt proxies CreateReceipt.
func (s *SQLStore) CreateReceipt(ctx context.Context, id string, r domain.Receipt) error {
	return CreateReceipt(ctx, s.DB, id, r)
}

// GetReceipt proxies GetReceipt.
func (s *SQLStore) GetReceipt(ctx context.Context, id string) (*domain.Receipt, error) {
	return GetReceipt(ctx, s.DB, id)
}

// GetScore proxies GetScore.
func (s *SQLStore) GetScore(ctx context.Context, id string) (domain.ScoreRecord, error) {
	return GetScore(ctx, s.DB, id)
}

// PutScoreIfAbsent proxies PutScoreIfAbsent.
func (s *SQLStore) PutScoreIfAbsent(ctx context.Context, id string, points int) (domain.ScoreRecord, error) {
	return PutScoreIfAbsent(ctx, s.DB, id, points)
}

// CountReceipts proxies CountReceipts.
func (s *SQLStore) CountReceipts(ctx context.Context) (int64, error) {
	return CountReceipts(ctx, s.DB)
}

// CountScores proxies CountScores.
func (s *SQLStore) CountScores(ctx context.Context) (int64, error) {
	return CountScores(ctx, s.DB)
}

// GetIdempotency proxies GetIdempotency.
func (s *SQLStore) GetIdempotency(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, s.DB, key, now)
}

// CreateIdempotency proxies CreateIdempotency.
func (s *SQLStore) CreateIdempotency(ctx context.Context, key, receiptID string, ttl time.Duration) (*domain.Idempotency, error) {
	return CreateIdempotency(ctx, s.DB, key, receiptID, ttl)
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
