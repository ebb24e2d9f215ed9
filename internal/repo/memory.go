package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tbourn/receipt-processor/internal/domain"
)

// MemoryStore keeps receipts, cached scores, and idempotency keys in maps
// guarded by a single RWMutex. Critical sections are a map access each, so
// lookups for different ids never wait on one another for long. Nothing
// survives the process.
//
// Receipts are copied on the way in and on the way out.
type MemoryStore struct {
	mu       sync.RWMutex
	receipts map[string]domain.Receipt
	scores   map[string]domain.ScoreRecord
	idem     map[string]domain.Idempotency

	now func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		receipts: make(map[string]domain.Receipt),
		scores:   make(map[string]domain.ScoreRecord),
		idem:     make(map[string]domain.Idempotency),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateReceipt(_ context.Context, id string, r domain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.receipts[id]; exists {
		return ErrDuplicate
	}
	s.receipts[id] = r.Clone()
	return nil
}

func (s *MemoryStore) GetReceipt(_ context.Context, id string) (*domain.Receipt, error) {
	s.mu.RLock()
	r, ok := s.receipts[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	out := r.Clone()
	return &out, nil
}

func (s *MemoryStore) GetScore(_ context.Context, id string) (domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.scores[id]; ok {
		return rec, nil
	}
	return domain.ScoreRecord{ReceiptID: id}, nil
}

func (s *MemoryStore) PutScoreIfAbsent(_ context.Context, id string, points int) (domain.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.receipts[id]; !ok {
		return domain.ScoreRecord{}, ErrOrphanScore
	}
	if rec, ok := s.scores[id]; ok {
		return rec, nil
	}
	rec := domain.ScoreRecord{
		ReceiptID:  id,
		Status:     domain.ScoreComputed,
		Points:     points,
		ComputedAt: s.now(),
	}
	s.scores[id] = rec
	return rec, nil
}

func (s *MemoryStore) CountReceipts(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.receipts)), nil
}

func (s *MemoryStore) CountScores(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.scores)), nil
}

func (s *MemoryStore) GetIdempotency(_ context.Context, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	rec, ok := s.idem[key]
	s.mu.RUnlock()

	if !ok || rec.Expired(now) {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) CreateIdempotency(_ context.Context, key, receiptID string, ttl time.Duration) (*domain.Idempotency, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.idem[key]; ok && !cur.Expired(now) {
		return nil, ErrDuplicate
	}
	rec := domain.Idempotency{Key: key, ReceiptID: receiptID, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	s.idem[key] = rec
	return &rec, nil
}

// Close is a no-op; it lets MemoryStore stand in wherever SQLStore is closed.
func (s *MemoryStore) Close() error { return nil }
