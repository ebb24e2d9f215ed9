// Package services – Ledger
//
// This file implements the receipt Ledger: it stores submitted receipts under
// fresh opaque ids and answers points queries, scoring each receipt at most
// once and serving the memoized value afterwards.
//
// Storage is injected (see ReceiptStore) so the ledger can run over the
// in-memory maps or the SQLite backend, and so tests can build as many
// independent ledgers as they like.
//
// Observability: public methods are OpenTelemetry-instrumented and feed the
// receipts_* Prometheus counters.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/receipt-processor/internal/domain"
	"github.com/tbourn/receipt-processor/internal/repo"
	"github.com/tbourn/receipt-processor/internal/scoring"
)

// maxIDAttempts bounds retries when a generated id collides.
const maxIDAttempts = 3

// ReceiptStore is the storage contract of the Ledger. Implementations must be
// safe for concurrent use.
type ReceiptStore interface {
	// CreateReceipt stores r under id; repo.ErrDuplicate if id is taken.
	CreateReceipt(ctx context.Context, id string, r domain.Receipt) error
	// GetReceipt returns the receipt stored under id or repo.ErrNotFound.
	GetReceipt(ctx context.Context, id string) (*domain.Receipt, error)
	// GetScore returns the cached score; Status is ScoreUncomputed if none.
	GetScore(ctx context.Context, id string) (domain.ScoreRecord, error)
	// PutScoreIfAbsent caches points unless a value exists and returns the
	// retained record; repo.ErrOrphanScore if the receipt is unknown.
	PutScoreIfAbsent(ctx context.Context, id string, points int) (domain.ScoreRecord, error)
	// CountReceipts returns the number of stored receipts.
	CountReceipts(ctx context.Context) (int64, error)
	// CountScores returns the number of cached scores.
	CountScores(ctx context.Context) (int64, error)
}

// LedgerStats summarizes ledger contents.
type LedgerStats struct {
	Receipts int64 `json:"receipts"`
	Scored   int64 `json:"scored"`
}

// Ledger owns the receipt and points stores and their memoization rules.
type Ledger struct {
	// Store holds receipts and cached scores.
	Store ReceiptStore
	// Scorer computes points. When nil, scoring.Breakdown feeds both the
	// total and the debug log in one pass.
	Scorer scoring.Scorer
	// NewID mints receipt ids; defaults to random UUIDs (128-bit).
	NewID func() string

	flight singleflight.Group
}

// NewLedger returns a Ledger over store with the default scorer and id source.
func NewLedger(store ReceiptStore) *Ledger {
	return &Ledger{
		Store: store,
		NewID: uuid.NewString,
	}
}

// Submit stores r under a freshly generated id and returns the id.
// Existing entries are never touched.
func (l *Ledger) Submit(ctx context.Context, r domain.Receipt) (string, error) {
	tr := otel.Tracer("services/Ledger")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.Int("receipt.items", len(r.Items))),
	)
	defer span.End()

	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}

	for attempt := 1; ; attempt++ {
		id := l.NewID()
		err := l.Store.CreateReceipt(ctx, id, r)
		if err == nil {
			span.SetAttributes(attribute.String("receipt.id", id))
			receiptsSubmitted.Inc()
			logger(ctx).Info().Str("receipt_id", id).Msg("receipt stored")
			return id, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) || attempt >= maxIDAttempts {
			span.RecordError(err)
			return "", fmt.Errorf("store receipt: %w", err)
		}
	}
}

// Points returns the points earned by the receipt stored under id. The first
// call scores the receipt and caches the result; later calls return the cached
// value without scoring again. Concurrent first calls for the same id share a
// single scoring pass. Unknown ids yield ErrReceiptNotFound.
func (l *Ledger) Points(ctx context.Context, id string) (int, error) {
	tr := otel.Tracer("services/Ledger")
	ctx, span := tr.Start(ctx, "Points",
		trace.WithAttributes(attribute.String("receipt.id", id)),
	)
	defer span.End()

	receipt, err := l.Store.GetReceipt(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, l.missing(ctx, id)
	}
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	rec, err := l.Store.GetScore(ctx, id)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if rec.Computed() {
		span.SetAttributes(attribute.Bool("points.cached", true))
		pointsCacheHits.Inc()
		logger(ctx).Debug().Str("receipt_id", id).Int("points", rec.Points).Msg("points served from cache")
		return rec.Points, nil
	}

	v, err, _ := l.flight.Do(id, func() (any, error) {
		// Callers that joined this flight wait on its result, so the first
		// caller's cancellation must not abort it.
		fctx := context.WithoutCancel(ctx)

		// Another flight may have finished between our read and this one.
		if rec, err := l.Store.GetScore(fctx, id); err != nil {
			return 0, err
		} else if rec.Computed() {
			return rec.Points, nil
		}

		points := l.score(fctx, id, *receipt)
		kept, err := l.Store.PutScoreIfAbsent(fctx, id, points)
		if errors.Is(err, repo.ErrOrphanScore) {
			return 0, l.corrupt(fctx, id, err)
		}
		if err != nil {
			return 0, err
		}
		return kept.Points, nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Bool("points.cached", false))
	return v.(int), nil
}

// Stats reports how many receipts are stored and how many have cached scores.
func (l *Ledger) Stats(ctx context.Context) (LedgerStats, error) {
	var st LedgerStats
	var err error
	if st.Receipts, err = l.Store.CountReceipts(ctx); err != nil {
		return LedgerStats{}, err
	}
	if st.Scored, err = l.Store.CountScores(ctx); err != nil {
		return LedgerStats{}, err
	}
	if st.Scored > st.Receipts {
		return st, l.corrupt(ctx, "", fmt.Errorf("%d scores for %d receipts", st.Scored, st.Receipts))
	}
	return st, nil
}

// score runs the scorer once and logs the rule breakdown at debug level.
func (l *Ledger) score(ctx context.Context, id string, r domain.Receipt) int {
	lg := logger(ctx)

	var awards []scoring.Award
	var points int
	if l.Scorer == nil {
		awards = scoring.Breakdown(r)
		points = scoring.Total(awards)
	} else {
		points = l.Scorer(r)
		if lg.Debug().Enabled() {
			awards = scoring.Breakdown(r)
		}
	}
	for _, a := range awards {
		ev := lg.Debug().Str("receipt_id", id).Str("rule", a.Rule).Int("points", a.Points)
		if a.Item != "" {
			ev = ev.Str("item", a.Item)
		}
		ev.Msg("points awarded")
	}

	pointsComputed.Inc()
	lg.Info().Str("receipt_id", id).Int("points", points).Msg("points computed")
	return points
}

// missing distinguishes an unknown id from a score that outlived its receipt.
func (l *Ledger) missing(ctx context.Context, id string) error {
	rec, err := l.Store.GetScore(ctx, id)
	if err == nil && rec.Computed() {
		return l.corrupt(ctx, id, errors.New("score without receipt"))
	}
	return ErrReceiptNotFound
}

func (l *Ledger) corrupt(ctx context.Context, id string, cause error) error {
	logger(ctx).Error().Err(cause).Str("receipt_id", id).Msg("ledger invariant violated")
	return fmt.Errorf("%w: %v", ErrLedgerCorrupt, cause)
}

// logger returns the request-scoped logger carried by ctx, or the global one.
func logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
