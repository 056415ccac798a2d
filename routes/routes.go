package routes

import (
	"time"

	"github.com/k0go07022003/StripeWoocommerce-Sync/controllers"
	"github.com/k0go07022003/StripeWoocommerce-Sync/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func Register(r *gin.Engine, ct *controllers.Controller) {
	r.GET("/health", ct.Health)

	// Stripe webhook (no auth, signature-verified)
	r.POST("/stripe/webhook", ct.StripeWebhook)

	admin := r.Group("/admin")
	admin.Use(middleware.RateLimit(rate.Every(time.Minute/100), 50))
	admin.GET("/mappings", ct.ListMappings)
	admin.PUT("/mappings", ct.UpsertMapping)
	admin.GET("/products/stripe", ct.ListStripeProducts)
	admin.GET("/products/woo", ct.ListWooProducts)
	admin.PUT("/settings", ct.UpdateSetting)
	admin.POST("/config/reload", ct.ReloadConfig)
}
