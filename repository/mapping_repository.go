package repository

import (
	"context"
	"errors"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMappingNotFound is returned when a Stripe product has no mapping.
var ErrMappingNotFound = errors.New("product mapping not found")

// MappingStore is the product-mapping lookup used by the pipeline. The
// write side belongs to the admin surface; the pipeline only ever calls Get.
type MappingStore interface {
	Get(ctx context.Context, stripeID string) (*models.ProductMapping, error)
	List(ctx context.Context) ([]models.ProductMapping, error)
	Set(ctx context.Context, stripeID, name string, wooProductIDs []int64) (*models.ProductMapping, error)
}

type gormMappingStore struct {
	db *gorm.DB
}

func NewGormMappingStore(db *gorm.DB) MappingStore {
	return &gormMappingStore{db: db}
}

func (r *gormMappingStore) Get(ctx context.Context, stripeID string) (*models.ProductMapping, error) {
	var mapping models.ProductMapping
	err := r.db.WithContext(ctx).Where("stripe_id = ?", stripeID).First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

func (r *gormMappingStore) List(ctx context.Context) ([]models.ProductMapping, error) {
	var mappings []models.ProductMapping
	if err := r.db.WithContext(ctx).Order("stripe_id").Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

// Set replaces the mapping for a Stripe product, creating it if needed.
func (r *gormMappingStore) Set(ctx context.Context, stripeID, name string, wooProductIDs []int64) (*models.ProductMapping, error) {
	mapping := models.ProductMapping{StripeID: stripeID, Name: name}
	mapping.SetWooProductIDs(wooProductIDs)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "woo_product_ids", "updated_at"}),
	}).Create(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
