package models

// WooCommerce REST v3 request/response shapes, limited to the fields the
// pipeline reads or writes.

type WooCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

type WooMeta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type WooLineItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Total     string `json:"total"`
}

type WooBilling struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

type WooOrder struct {
	ID        int64         `json:"id"`
	Status    string        `json:"status"`
	LineItems []WooLineItem `json:"line_items"`
	MetaData  []WooMeta     `json:"meta_data"`
}

// SessionID returns the payment session recorded in the order metadata,
// or "" when the order was not created by this service.
func (o *WooOrder) SessionID() string {
	for _, m := range o.MetaData {
		if m.Key == MetaKeySessionID {
			return m.Value
		}
	}
	return ""
}

// WooOrderRequest is the order-creation payload.
type WooOrderRequest struct {
	PaymentMethod      string        `json:"payment_method"`
	PaymentMethodTitle string        `json:"payment_method_title"`
	SetPaid            bool          `json:"set_paid"`
	Status             string        `json:"status"`
	CustomerID         int64         `json:"customer_id"`
	Billing            WooBilling    `json:"billing"`
	LineItems          []WooLineItem `json:"line_items"`
	MetaData           []WooMeta     `json:"meta_data"`
}

type WooProduct struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Price  string `json:"price"`
}

// Metadata keys attached to every order the pipeline creates. The
// session key doubles as the idempotency key for the lookback scan.
const (
	MetaKeySessionID     = "payment_session_id"
	MetaKeyPaymentIntent = "payment_intent_id"
)
