package controllers

import (
	"context"
	"sync/atomic"

	"github.com/k0go07022003/StripeWoocommerce-Sync/config"
	"github.com/k0go07022003/StripeWoocommerce-Sync/models"
	"github.com/k0go07022003/StripeWoocommerce-Sync/repository"
	"github.com/k0go07022003/StripeWoocommerce-Sync/services"
)

// ReconcilerAPI runs one notification through the pipeline.
type ReconcilerAPI interface {
	Run(ctx context.Context, payload []byte, sigHeader string) services.RunResult
}

// EventPublisher pushes reconciliation events to downstream consumers.
type EventPublisher interface {
	PublishOrderReconciled(ctx context.Context, evt models.OrderReconciledEvent) error
}

type StripeProductLister interface {
	ListProducts(ctx context.Context, pageSize int) ([]models.StripeProduct, error)
}

type WooProductLister interface {
	ListAllProducts(ctx context.Context, perPage, maxPages int) ([]models.WooProduct, error)
}

// ProductCache keeps the admin product listings warm between requests.
// Nil when no cache backend is configured.
type ProductCache interface {
	GetStripeProducts(ctx context.Context) ([]models.StripeProduct, bool)
	SetStripeProductsAsync(products []models.StripeProduct)
	GetWooProducts(ctx context.Context) ([]models.WooProduct, bool)
	SetWooProductsAsync(products []models.WooProduct)
	Invalidate(ctx context.Context) error
}

// Pipeline bundles one immutable configuration snapshot with the
// collaborators built from it. Reconciler is nil while the Stripe or
// WooCommerce integration is unconfigured.
type Pipeline struct {
	Cfg            *config.Config
	Reconciler     ReconcilerAPI
	Publisher      EventPublisher
	StripeProducts StripeProductLister
	WooProducts    WooProductLister
	Cache          ProductCache
}

// Configured reports whether the pipeline can process notifications.
func (p *Pipeline) Configured() bool {
	return p.Reconciler != nil
}

// Controller holds the handlers. The active pipeline is swapped
// atomically on reload so every request sees one consistent snapshot.
type Controller struct {
	pipeline atomic.Pointer[Pipeline]
	rebuild  func(ctx context.Context) (*Pipeline, error)
	mappings repository.MappingStore
	settings repository.SettingsRepository
}

func NewController(
	initial *Pipeline,
	rebuild func(ctx context.Context) (*Pipeline, error),
	mappings repository.MappingStore,
	settings repository.SettingsRepository,
) *Controller {
	ct := &Controller{
		rebuild:  rebuild,
		mappings: mappings,
		settings: settings,
	}
	ct.pipeline.Store(initial)
	return ct
}

func (ct *Controller) current() *Pipeline {
	return ct.pipeline.Load()
}
