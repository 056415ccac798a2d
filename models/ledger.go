package models

import "time"

// ReconciledOrder is the idempotency ledger. The unique index on
// SessionID is what guarantees at most one order per checkout session:
// a run must win the insert before it may submit to WooCommerce.
// WooOrderID stays zero while the claiming run is still in flight.
type ReconciledOrder struct {
	ID              uint      `gorm:"primaryKey"`
	SessionID       string    `gorm:"type:varchar(128);uniqueIndex;not null"`
	PaymentIntentID string    `gorm:"type:varchar(128);index"`
	WooOrderID      int64     `gorm:"index"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}
