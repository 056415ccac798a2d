package models

import "time"

// OrderReconciledEvent is published after a checkout session has been
// turned into a WooCommerce order (or matched to an existing one).
type OrderReconciledEvent struct {
	Type            string    `json:"type"`
	SessionID       string    `json:"session_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	WooOrderID      int64     `json:"woo_order_id"`
	CustomerEmail   string    `json:"customer_email"`
	Duplicate       bool      `json:"duplicate"`
	SkippedItems    int       `json:"skipped_items"`
	Timestamp       time.Time `json:"timestamp"`
}
