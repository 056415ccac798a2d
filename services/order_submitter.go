package services

import (
	"context"
	"errors"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"
)

// WooOrderCreator is the slice of the Woo client the submitter needs.
type WooOrderCreator interface {
	CreateOrder(ctx context.Context, req *models.WooOrderRequest) (*models.WooOrder, error)
}

// OrderSubmitter builds and persists the WooCommerce order for a
// checkout session. The order is marked paid and completed; the session
// and payment-intent ids ride along as metadata.
type OrderSubmitter struct {
	woo WooOrderCreator
}

func NewOrderSubmitter(woo WooOrderCreator) *OrderSubmitter {
	return &OrderSubmitter{woo: woo}
}

func (s *OrderSubmitter) Submit(ctx context.Context, customer *models.WooCustomer, lineItems []models.WooLineItem, session *models.PaymentSession) (*models.WooOrder, *ReconcileError) {
	req := &models.WooOrderRequest{
		PaymentMethod:      "stripe",
		PaymentMethodTitle: "Stripe",
		SetPaid:            true,
		Status:             "completed",
		CustomerID:         customer.ID,
		Billing: models.WooBilling{
			Email:     session.CustomerEmail,
			FirstName: session.CustomerName,
		},
		LineItems: lineItems,
		MetaData: []models.WooMeta{
			{Key: models.MetaKeySessionID, Value: session.ID},
			{Key: models.MetaKeyPaymentIntent, Value: session.PaymentIntentID},
		},
	}

	order, err := s.woo.CreateOrder(ctx, req)
	if err != nil {
		rerr := NewError(ErrKindOrderCreation, "failed to create WooCommerce order", err)
		var apiErr *WooAPIError
		if errors.As(err, &apiErr) {
			rerr.Status = apiErr.StatusCode
		}
		return nil, rerr
	}
	return order, nil
}
