package services

import (
	"context"
	"time"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"
)

// WooOrderLister is the slice of the Woo client the checker needs.
type WooOrderLister interface {
	ListOrdersAfter(ctx context.Context, after time.Time, page, perPage int) ([]models.WooOrder, error)
}

// IdempotencyChecker scans recent WooCommerce orders for one whose
// metadata already carries the session id. It only sees orders inside
// the lookback window that the store has indexed; the ledger claim is
// the stronger guard against concurrent duplicates.
type IdempotencyChecker struct {
	woo      WooOrderLister
	lookback time.Duration
	pageSize int
	maxPages int
	now      func() time.Time
}

func NewIdempotencyChecker(woo WooOrderLister, lookback time.Duration, pageSize, maxPages int) *IdempotencyChecker {
	return &IdempotencyChecker{
		woo:      woo,
		lookback: lookback,
		pageSize: pageSize,
		maxPages: maxPages,
		now:      time.Now,
	}
}

// FindExistingOrder returns the first order created within the lookback
// window whose metadata matches the session, or nil when none is found.
func (c *IdempotencyChecker) FindExistingOrder(ctx context.Context, sessionID string) (*models.WooOrder, error) {
	after := c.now().Add(-c.lookback)

	var match *models.WooOrder
	err := scanPages(c.maxPages,
		func(page int) ([]models.WooOrder, error) {
			return c.woo.ListOrdersAfter(ctx, after, page, c.pageSize)
		},
		func(order models.WooOrder) bool {
			if order.SessionID() == sessionID {
				o := order
				match = &o
				return true
			}
			return false
		},
	)
	if err != nil {
		return nil, err
	}
	return match, nil
}
