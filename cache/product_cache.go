package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/k0go07022003/StripeWoocommerce-Sync/logger"
	"github.com/k0go07022003/StripeWoocommerce-Sync/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	StripeProductsKey = "products:stripe"
	WooProductsKey    = "products:woo"
)

// ProductCache keeps the admin product listings in Redis so repeated
// requests do not re-walk every page of the Stripe and WooCommerce
// catalog APIs. Entries expire on their own; Invalidate drops them
// eagerly when the active configuration changes.
type ProductCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{redis: client, ttl: ttl}
}

// GetStripeProducts retrieves the cached Stripe product listing.
func (pc *ProductCache) GetStripeProducts(ctx context.Context) ([]models.StripeProduct, bool) {
	return get[models.StripeProduct](ctx, pc, StripeProductsKey)
}

// SetStripeProductsAsync caches the Stripe listing off the request path.
func (pc *ProductCache) SetStripeProductsAsync(products []models.StripeProduct) {
	setAsync(pc, StripeProductsKey, products)
}

// GetWooProducts retrieves the cached WooCommerce product listing.
func (pc *ProductCache) GetWooProducts(ctx context.Context) ([]models.WooProduct, bool) {
	return get[models.WooProduct](ctx, pc, WooProductsKey)
}

// SetWooProductsAsync caches the WooCommerce listing off the request path.
func (pc *ProductCache) SetWooProductsAsync(products []models.WooProduct) {
	setAsync(pc, WooProductsKey, products)
}

// Invalidate drops both listings, used when the configuration snapshot
// is swapped and the listings may now come from different backends.
func (pc *ProductCache) Invalidate(ctx context.Context) error {
	return pc.redis.Del(ctx, StripeProductsKey, WooProductsKey).Err()
}

func get[T any](ctx context.Context, pc *ProductCache, key string) ([]T, bool) {
	cached, err := pc.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Product cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var products []T
	if err := json.Unmarshal([]byte(cached), &products); err != nil {
		logger.Log.Warn("Failed to unmarshal cached product listing", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return products, true
}

func setAsync[T any](pc *ProductCache, key string, products []T) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		jsonBytes, err := json.Marshal(products)
		if err != nil {
			logger.Log.Warn("Failed to marshal product listing for cache", zap.String("key", key), zap.Error(err))
			return
		}
		if err := pc.redis.Set(bgCtx, key, jsonBytes, pc.ttl).Err(); err != nil {
			logger.Log.Warn("Failed to cache product listing", zap.String("key", key), zap.Error(err))
		}
	}()
}
