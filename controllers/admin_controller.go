package controllers

import (
	"net/http"

	"github.com/k0go07022003/StripeWoocommerce-Sync/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Admin JSON surface for the mapping store and settings. Authentication
// for these routes is owned by the deployment in front of this service.

func (ct *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"configured": ct.current().Configured(),
	})
}

func (ct *Controller) ListMappings(c *gin.Context) {
	mappings, err := ct.mappings.List(c.Request.Context())
	if err != nil {
		logger.Error(c, "Failed to list mappings", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list mappings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mappings": mappings})
}

func (ct *Controller) UpsertMapping(c *gin.Context) {
	var req struct {
		StripeID      string  `json:"stripe_id" binding:"required"`
		Name          string  `json:"name" binding:"required"`
		WooProductIDs []int64 `json:"woo_product_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mapping, err := ct.mappings.Set(c.Request.Context(), req.StripeID, req.Name, req.WooProductIDs)
	if err != nil {
		logger.Error(c, "Failed to upsert mapping", err, zap.String("stripe_id", req.StripeID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save mapping"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mapping": mapping})
}

// ListStripeProducts surfaces active processor products so the operator
// can build mappings against live ids. Listings are served from cache
// when one is configured; a miss walks the paginated API and refills it.
func (ct *Controller) ListStripeProducts(c *gin.Context) {
	pipeline := ct.current()
	if !pipeline.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stripe integration not configured"})
		return
	}

	if pipeline.Cache != nil {
		if products, ok := pipeline.Cache.GetStripeProducts(c.Request.Context()); ok {
			c.JSON(http.StatusOK, gin.H{"products": products})
			return
		}
	}

	products, err := pipeline.StripeProducts.ListProducts(c.Request.Context(), pipeline.Cfg.ProductPageSize)
	if err != nil {
		logger.Error(c, "Failed to list Stripe products", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to list stripe products"})
		return
	}
	if pipeline.Cache != nil {
		pipeline.Cache.SetStripeProductsAsync(products)
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (ct *Controller) ListWooProducts(c *gin.Context) {
	pipeline := ct.current()
	if !pipeline.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "woocommerce integration not configured"})
		return
	}

	if pipeline.Cache != nil {
		if products, ok := pipeline.Cache.GetWooProducts(c.Request.Context()); ok {
			c.JSON(http.StatusOK, gin.H{"products": products})
			return
		}
	}

	products, err := pipeline.WooProducts.ListAllProducts(c.Request.Context(), pipeline.Cfg.ProductPageSize, pipeline.Cfg.MaxPages)
	if err != nil {
		logger.Error(c, "Failed to list WooCommerce products", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to list woocommerce products"})
		return
	}
	if pipeline.Cache != nil {
		pipeline.Cache.SetWooProductsAsync(products)
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (ct *Controller) UpdateSetting(c *gin.Context) {
	var req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ct.settings.Set(c.Request.Context(), req.Key, req.Value); err != nil {
		logger.Error(c, "Failed to update setting", err, zap.String("key", req.Key))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save setting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// ReloadConfig builds a fresh pipeline from the environment and stored
// settings and swaps it in. In-flight runs keep their old snapshot.
// Cached product listings are dropped since the new snapshot may point
// at different backends.
func (ct *Controller) ReloadConfig(c *gin.Context) {
	pipeline, err := ct.rebuild(c.Request.Context())
	if err != nil {
		logger.Error(c, "Failed to reload configuration", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reload configuration"})
		return
	}
	ct.pipeline.Store(pipeline)
	if pipeline.Cache != nil {
		if err := pipeline.Cache.Invalidate(c.Request.Context()); err != nil {
			logger.Warn(c, "Failed to invalidate product cache", zap.Error(err))
		}
	}
	logger.Info(c, "Configuration reloaded", zap.Bool("configured", pipeline.Configured()))
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "configured": pipeline.Configured()})
}
