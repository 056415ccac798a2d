package services

import (
	"context"
	"strings"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"

	"golang.org/x/sync/singleflight"
)

// WooCustomerAPI is the slice of the Woo client the resolver needs.
type WooCustomerAPI interface {
	FindCustomerByEmail(ctx context.Context, email string) (*models.WooCustomer, error)
	CreateCustomer(ctx context.Context, email, firstName string) (*models.WooCustomer, error)
}

// CustomerResolver finds or creates the WooCommerce customer for a
// payer. Concurrent resolutions for the same email are collapsed into a
// single lookup-then-create, so an unseen email yields one customer.
type CustomerResolver struct {
	woo   WooCustomerAPI
	group singleflight.Group
}

func NewCustomerResolver(woo WooCustomerAPI) *CustomerResolver {
	return &CustomerResolver{woo: woo}
}

func (r *CustomerResolver) Resolve(ctx context.Context, email, name string) (*models.WooCustomer, *ReconcileError) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return nil, NewError(ErrKindCustomerResolution, "payment session has no customer email", nil)
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		customer, err := r.woo.FindCustomerByEmail(ctx, key)
		if err != nil {
			return nil, err
		}
		if customer != nil {
			return customer, nil
		}
		return r.woo.CreateCustomer(ctx, key, name)
	})
	if err != nil {
		return nil, NewError(ErrKindCustomerResolution, "failed to resolve customer for "+key, err)
	}
	return v.(*models.WooCustomer), nil
}
