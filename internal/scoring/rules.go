// Package scoring converts a receipt into loyalty points.
//
// Every rule is additive and independent, so the order in which rules run
// (and the order of the items on the receipt) never changes the total. The
// package has no state and performs no I/O; Score is safe to call from any
// number of goroutines.
//
// Amounts are handled as fixed-point decimals. The round-dollar and quarter
// checks look only at the cents of the total; the per-item bonus multiplies
// the decimal price by 0.2 and rounds up.
package scoring

import (
	"unicode"
	"unicode/utf8"

	"github.com/tbourn/receipt-processor/internal/domain"
)

// Rule names, stable for logs and API detail.
const (
	RuleRetailerName   = "retailer_alphanumeric"
	RuleRoundDollar    = "round_dollar_total"
	RuleQuarterTotal   = "quarter_multiple_total"
	RuleItemPairs      = "item_pairs"
	RuleItemDesc       = "item_description"
	RuleOddDay         = "odd_purchase_day"
	RuleAfternoonHours = "afternoon_purchase"
)

const (
	roundDollarPoints = 50
	quarterPoints     = 25
	pairPoints        = 5
	oddDayPoints      = 6
	afternoonPoints   = 10

	afternoonStartHour = 14 // inclusive
	afternoonEndHour   = 16 // exclusive
)

// Award is one rule's contribution to a receipt's total.
type Award struct {
	Rule   string
	Points int
	// Item is the trimmed description for per-item awards, empty otherwise.
	Item string
}

// Scorer computes the point total of a receipt.
type Scorer func(domain.Receipt) int

// Score returns the total points earned by r. It is deterministic and never
// negative.
func Score(r domain.Receipt) int {
	return Total(Breakdown(r))
}

// Total sums the points of awards.
func Total(awards []Award) int {
	total := 0
	for _, a := range awards {
		total += a.Points
	}
	return total
}

// Breakdown lists every rule that awarded points to r, in rule order.
// Rules that award nothing are omitted. Amounts that fail to parse or fall
// outside domain.ValidAmount award nothing; Receipt.Validate rejects those
// before a receipt is stored.
func Breakdown(r domain.Receipt) []Award {
	var out []Award
	add := func(rule string, pts int, item string) {
		if pts != 0 {
			out = append(out, Award{Rule: rule, Points: pts, Item: item})
		}
	}

	add(RuleRetailerName, alphanumericCount(r.Retailer), "")

	if cents, err := FractionCents(r.Total); err == nil {
		if cents%100 == 0 {
			add(RuleRoundDollar, roundDollarPoints, "")
		}
		if cents%25 == 0 {
			add(RuleQuarterTotal, quarterPoints, "")
		}
	}

	add(RuleItemPairs, pairPoints*(len(r.Items)/2), "")

	for _, it := range r.Items {
		desc := it.TrimmedDescription()
		if utf8.RuneCountInString(desc)%3 != 0 {
			continue
		}
		if bonus, err := ItemBonus(it.Price); err == nil {
			add(RuleItemDesc, int(bonus), desc)
		}
	}

	if r.PurchaseDate.Day()%2 == 1 {
		add(RuleOddDay, oddDayPoints, "")
	}

	if h := r.PurchaseTime.Hour; h >= afternoonStartHour && h < afternoonEndHour {
		add(RuleAfternoonHours, afternoonPoints, "")
	}

	return out
}

// alphanumericCount counts letters and digits in s. Spaces and punctuation
// are scanned but not counted.
func alphanumericCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			n++
		}
	}
	return n
}
