package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loyalty_system/internal/domain"
)

func TestBasePoints(t *testing.T) {
	tests := []struct {
		spent float64
		want  int
	}{
		{10.00, 40},  // $10.00 -> 1000 cents -> 40 points
		{0.25, 1},    // exactly one point
		{0.12, 0},    // 12 cents rounds down
		{0.13, 1},    // 13 cents rounds up
		{19.99, 80},  // 1999/25 = 79.96 -> 80
		{100.00, 400},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BasePoints(tt.spent), "spent=%v", tt.spent)
	}
}

func TestPromotionBonus(t *testing.T) {
	flat := 50
	rate := 0.01

	p := &domain.Promotion{Points: &flat}
	assert.Equal(t, 50.0, PromotionBonus(p, 10.00))

	p = &domain.Promotion{Rate: &rate}
	assert.Equal(t, 10.0, PromotionBonus(p, 10.00)) // 1000 cents * 0.01

	p = &domain.Promotion{Points: &flat, Rate: &rate}
	assert.Equal(t, 60.0, PromotionBonus(p, 10.00))

	// Fractional rate bonuses are kept as-is.
	small := 0.015
	p = &domain.Promotion{Rate: &small}
	assert.InDelta(t, 1.245, PromotionBonus(p, 0.83), 1e-9)
}

func TestPurchaseTotal(t *testing.T) {
	flat := 20
	rate := 0.02
	promos := []*domain.Promotion{
		{Points: &flat},
		{Rate: &rate},
	}
	// base 40 + flat 20 + 1000*0.02 = 80
	assert.Equal(t, 80.0, PurchaseTotal(10.00, promos))
	assert.Equal(t, 40.0, PurchaseTotal(10.00, nil))
}

func TestBalanceDelta(t *testing.T) {
	assert.Equal(t, 40, BalanceDelta(40.0))
	assert.Equal(t, 41, BalanceDelta(40.5))
	assert.Equal(t, 40, BalanceDelta(40.4))
	assert.Equal(t, -500, BalanceDelta(-500.0))
}
