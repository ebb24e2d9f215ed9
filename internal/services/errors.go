// Package services defines the business logic of the receipt processor.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import "errors"

// Ledger errors.
var (
	// ErrReceiptNotFound indicates that no receipt was ever submitted under
	// the requested id. Callers recover by submitting first or fixing the id.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrInvalidReceipt is returned when a receipt reaches the ledger without
	// the structure validation guarantees (e.g. no items).
	ErrInvalidReceipt = errors.New("invalid receipt")

	// ErrLedgerCorrupt reports a broken storage invariant: a cached score
	// exists for a receipt id that the receipt store does not know. It means
	// a bug in submit/points coordination and is never tolerated silently.
	ErrLedgerCorrupt = errors.New("ledger invariant violated")
)
