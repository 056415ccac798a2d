package models

// PaymentSession is a completed Stripe checkout session as reported by a
// verified webhook event. Built once by the stripe client and never
// mutated afterwards.
type PaymentSession struct {
	ID              string
	PaymentIntentID string
	CustomerEmail   string
	CustomerName    string
	LineItems       []LineItem
}

// LineItem is a single priced entry within a payment session.
// AmountTotal is in minor currency units (cents).
type LineItem struct {
	ProductID   string
	Quantity    int64
	AmountTotal int64
}

// StripeProduct is an active processor product, listed for the admin
// mapping surface.
type StripeProduct struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
