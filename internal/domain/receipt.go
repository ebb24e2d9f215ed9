// Package domain defines the receipt value types shared by the scoring engine,
// the ledger service, the storage backends, and the HTTP layer.
//
// A Receipt is immutable once constructed: callers that need to keep one
// beyond a request hand out copies via Clone so nothing downstream can alias
// the item slice of a stored receipt.
package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the wire layout of a purchase date.
const DateLayout = "2006-01-02"

// TimeLayout is the wire layout of a purchase time (24h clock). A seconds
// suffix (TimeLayoutSeconds) is accepted as well.
const (
	TimeLayout        = "15:04"
	TimeLayoutSeconds = "15:04:05"
)

// MaxAmountDigits caps the whole-unit digits of an amount. Twelve digits keep
// every per-item bonus, and the sum over any receipt that fits in a request,
// well inside int.
const MaxAmountDigits = 12

var amountRE = regexp.MustCompile(`^[0-9]{1,12}\.[0-9]{2}$`)

// ValidAmount reports whether s is a fixed-point amount with exactly two
// fractional digits and at most MaxAmountDigits whole digits.
func ValidAmount(s string) bool { return amountRE.MatchString(s) }

// Item is a single purchased line on a receipt.
//
// Fields:
//   - ShortDescription: raw description as submitted (whitespace preserved).
//   - Price: fixed-point decimal string with exactly two fractional digits.
type Item struct {
	ShortDescription string `json:"shortDescription"`
	Price            string `json:"price"`
}

// TrimmedDescription returns the description without surrounding whitespace.
// The stored value is never modified.
func (it Item) TrimmedDescription() string {
	return strings.TrimSpace(it.ShortDescription)
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses a 24h "HH:MM" or "HH:MM:SS" value.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	layout := TimeLayout
	if len(s) > len(TimeLayout) {
		layout = TimeLayoutSeconds
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

// String renders the time as "HH:MM", or "HH:MM:SS" when seconds are set.
func (t TimeOfDay) String() string {
	if t.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Receipt is a validated purchase record. Total is never cross-checked
// against the item prices.
type Receipt struct {
	Retailer     string
	PurchaseDate time.Time // date only, midnight UTC
	PurchaseTime TimeOfDay
	Items        []Item
	Total        string
}

// Validate checks the structure the scoring engine relies on: at least one
// item and well-formed, bounded amounts.
func (r Receipt) Validate() error {
	if len(r.Items) == 0 {
		return errors.New("receipt has no items")
	}
	if !ValidAmount(r.Total) {
		return fmt.Errorf("total %q is not a valid amount", r.Total)
	}
	for i, it := range r.Items {
		if !ValidAmount(it.Price) {
			return fmt.Errorf("items[%d].price %q is not a valid amount", i, it.Price)
		}
	}
	return nil
}

// Clone returns a deep copy of r.
func (r Receipt) Clone() Receipt {
	out := r
	if r.Items != nil {
		out.Items = make([]Item, len(r.Items))
		copy(out.Items, r.Items)
	}
	return out
}

// ScoreStatus distinguishes a receipt whose points were never requested from
// one whose points are cached.
type ScoreStatus int

const (
	ScoreUncomputed ScoreStatus = iota
	ScoreComputed
)

func (s ScoreStatus) String() string {
	switch s {
	case ScoreComputed:
		return "computed"
	default:
		return "uncomputed"
	}
}

// ScoreRecord is the memoized point value for a receipt id. The zero value
// (Status == ScoreUncomputed) means nothing has been cached yet.
type ScoreRecord struct {
	ReceiptID  string
	Status     ScoreStatus
	Points     int
	ComputedAt time.Time
}

// Computed reports whether the record carries a cached value.
func (s ScoreRecord) Computed() bool { return s.Status == ScoreComputed }
