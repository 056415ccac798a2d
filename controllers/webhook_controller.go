package controllers

import (
	"io"
	"net/http"
	"time"

	"github.com/k0go07022003/StripeWoocommerce-Sync/logger"
	"github.com/k0go07022003/StripeWoocommerce-Sync/models"
	"github.com/k0go07022003/StripeWoocommerce-Sync/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stripe sends events well under this; anything larger is not ours.
const webhookBodyLimit = 1 << 20

// StripeWebhook receives payment notifications and runs the
// reconciliation pipeline. It always answers with a structured body:
// a success ack for ignored and completed runs, an error kind otherwise.
func (ct *Controller) StripeWebhook(c *gin.Context) {
	pipeline := ct.current()
	if !pipeline.Configured() {
		rerr := services.NewError(services.ErrKindUnconfiguredIntegration, "stripe or woocommerce credentials are not configured", nil)
		logger.Warn(c, "Webhook received while unconfigured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": rerr})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit))
	if err != nil {
		rerr := services.NewError(services.ErrKindInvalidPayload, "failed to read webhook body", err)
		logger.Warn(c, "Rejecting unreadable webhook body", zap.Error(err))
		c.JSON(rerr.HTTPStatus(), gin.H{"error": rerr})
		return
	}
	sigHeader := c.GetHeader("Stripe-Signature")

	result := pipeline.Reconciler.Run(c.Request.Context(), payload, sigHeader)

	switch result.State {
	case services.StateIgnored:
		c.JSON(http.StatusOK, gin.H{"status": "received"})
	case services.StateErrored:
		c.JSON(result.Err.HTTPStatus(), gin.H{"error": result.Err})
	default:
		ct.publishResult(c, pipeline, result)
		resp := gin.H{"status": "received", "duplicate": result.Duplicate}
		if result.Order != nil {
			resp["order_id"] = result.Order.ID
		}
		c.JSON(http.StatusOK, resp)
	}
}

// publishResult emits the reconciliation event, best effort. A publish
// failure never fails the webhook response.
func (ct *Controller) publishResult(c *gin.Context, pipeline *Pipeline, result services.RunResult) {
	if pipeline.Publisher == nil || result.Session == nil {
		return
	}
	evt := models.OrderReconciledEvent{
		Type:            "order.reconciled",
		SessionID:       result.Session.ID,
		PaymentIntentID: result.Session.PaymentIntentID,
		CustomerEmail:   result.Session.CustomerEmail,
		Duplicate:       result.Duplicate,
		SkippedItems:    len(result.MappingFailures),
		Timestamp:       time.Now().UTC(),
	}
	if result.Order != nil {
		evt.WooOrderID = result.Order.ID
	}
	if err := pipeline.Publisher.PublishOrderReconciled(c.Request.Context(), evt); err != nil {
		logger.Warn(c, "Failed to publish reconciliation event",
			zap.String("session_id", evt.SessionID),
			zap.Error(err),
		)
	}
}
