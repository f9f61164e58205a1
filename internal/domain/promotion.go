package domain

import "time"

// Promotion types.
const (
	PromotionAutomatic = "AUTOMATIC" // applies while active, unlimited uses
	PromotionOneTime   = "ONETIME"   // usable at most once per user
)

// Promotion Model. Defining fields are locked in once StartTime passes:
// edits and deletion are only allowed before launch.
type Promotion struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"not null"`
	Description string    `gorm:"not null"`
	Type        string    `gorm:"not null"` // AUTOMATIC or ONETIME
	StartTime   time.Time `gorm:"not null"`
	EndTime     time.Time `gorm:"not null"`
	MinSpending *float64  // Minimum purchase amount to qualify, optional
	Rate        *float64  // Proportional bonus: spent_cents * Rate
	Points      *int      // Flat point bonus

	Transactions []Transaction `gorm:"many2many:transaction_promotions"` // Purchases this promotion contributed to
	CreatedAt    time.Time
}

// Active reports whether now falls inside [StartTime, EndTime).
func (p *Promotion) Active(now time.Time) bool {
	return !p.StartTime.After(now) && p.EndTime.After(now)
}
