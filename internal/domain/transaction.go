package domain

import "time"

// Transaction types.
const (
	TxPurchase   = "PURCHASE"
	TxAdjustment = "ADJUSTMENT"
	TxRedemption = "REDEMPTION"
	TxTransfer   = "TRANSFER"
	TxEvent      = "EVENT"
)

// Transaction is an immutable ledger entry. After creation only two fields
// may ever change: Suspicious (manager review) and ProcessedByID (set exactly
// once when a redemption is fulfilled).
//
// Points is the signed delta applied to the subject user's balance. It is a
// float because promotion rate bonuses accumulate fractional amounts; balance
// mutations round it exactly once (see ledger.BalanceDelta) so that a credit
// and its suspicious-flip reversal always move the balance by the same
// integer.
type Transaction struct {
	ID          uint     `gorm:"primaryKey"`      // Primary key
	Type        string   `gorm:"index;not null"`  // PURCHASE, ADJUSTMENT, REDEMPTION, TRANSFER or EVENT
	Points      float64  `gorm:"not null"`        // Signed point delta for the subject user
	Spent       *float64 // Dollars spent (purchase only)
	Redeemed    *int     // Amount pending cashier processing (redemption only)
	Suspicious  bool     `gorm:"not null;default:false"` // Copied from the creator's flag at creation
	Remark      string   // Free-form note
	UserID      uint     `gorm:"index;not null"` // Subject user
	CreatedByID uint     `gorm:"index;not null"` // Creator

	// Exactly one of the following is set, depending on Type.
	AdjustedTransactionID *uint // Adjustment: the transaction being corrected
	RelatedUserID         *uint // Transfer: the counterpart user
	ProcessedByID         *uint // Redemption: fulfilling cashier, nil until processed
	EventID               *uint // Event award: the source event

	Promotions []Promotion `gorm:"many2many:transaction_promotions"` // Promotions applied to a purchase/adjustment
	User       User        `gorm:"foreignKey:UserID"`
	CreatedBy  User        `gorm:"foreignKey:CreatedByID"`
	CreatedAt  time.Time
}

// RelatedID returns the polymorphic relation for this transaction's type,
// or nil when the type carries none (purchase) or it is not yet set.
func (t *Transaction) RelatedID() *uint {
	switch t.Type {
	case TxAdjustment:
		return t.AdjustedTransactionID
	case TxTransfer:
		return t.RelatedUserID
	case TxRedemption:
		return t.ProcessedByID
	case TxEvent:
		return t.EventID
	}
	return nil
}
