// Package ledger holds the points arithmetic shared by the transaction
// handlers: base earning on purchases, promotion bonuses, and the single
// rounding step between a transaction's recorded points and the integer
// balance delta it applies.
package ledger

import (
	"math"

	"loyalty_system/internal/domain"
)

// centsPerPoint is the purchase earning rate: one point per 25 cents spent.
const centsPerPoint = 25

// BasePoints returns the points earned by a purchase of spent dollars before
// any promotion bonus: round(spent_cents / 25).
func BasePoints(spent float64) int {
	return int(math.Round(spent * 100 / centsPerPoint))
}

// PromotionBonus returns the extra points a single promotion contributes to
// a purchase of spent dollars. Rate bonuses are proportional to the amount
// in cents and may be fractional; the total is recorded as-is, not rounded.
func PromotionBonus(p *domain.Promotion, spent float64) float64 {
	var bonus float64
	if p.Points != nil {
		bonus += float64(*p.Points)
	}
	if p.Rate != nil {
		bonus += spent * 100 * *p.Rate
	}
	return bonus
}

// PurchaseTotal returns the full points value of a purchase with the given
// promotions applied.
func PurchaseTotal(spent float64, promotions []*domain.Promotion) float64 {
	total := float64(BasePoints(spent))
	for _, p := range promotions {
		total += PromotionBonus(p, spent)
	}
	return total
}

// BalanceDelta converts a transaction's recorded points into the integer
// applied to the user's balance. Every balance mutation derived from a
// transaction goes through this one rounding so that crediting and later
// reversing the same transaction always move the balance by the same amount.
func BalanceDelta(points float64) int {
	return int(math.Round(points))
}
