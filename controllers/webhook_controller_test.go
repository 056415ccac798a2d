package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/k0go07022003/StripeWoocommerce-Sync/config"
	"github.com/k0go07022003/StripeWoocommerce-Sync/logger"
	"github.com/k0go07022003/StripeWoocommerce-Sync/models"
	"github.com/k0go07022003/StripeWoocommerce-Sync/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubReconciler struct {
	result services.RunResult
	calls  int
}

func (s *stubReconciler) Run(ctx context.Context, payload []byte, sigHeader string) services.RunResult {
	s.calls++
	return s.result
}

type stubPublisher struct {
	events []models.OrderReconciledEvent
	err    error
}

func (s *stubPublisher) PublishOrderReconciled(ctx context.Context, evt models.OrderReconciledEvent) error {
	s.events = append(s.events, evt)
	return s.err
}

func newTestRouter(pipeline *Pipeline) (*gin.Engine, *Controller) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	ct := NewController(pipeline, nil, nil, nil)
	r := gin.New()
	r.POST("/stripe/webhook", ct.StripeWebhook)
	return r, ct
}

func postWebhook(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=sig")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStripeWebhook_UnconfiguredRejectsWithoutRunning(t *testing.T) {
	r, _ := newTestRouter(&Pipeline{Cfg: &config.Config{}})

	w := postWebhook(r, "{}")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp struct {
		Error services.ReconcileError `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, services.ErrKindUnconfiguredIntegration, resp.Error.Kind)
}

func TestStripeWebhook_OversizedBodyRejectedBeforeVerification(t *testing.T) {
	rec := &stubReconciler{}
	r, _ := newTestRouter(&Pipeline{Cfg: &config.Config{}, Reconciler: rec})

	w := postWebhook(r, strings.Repeat("a", webhookBodyLimit+1))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Error services.ReconcileError `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, services.ErrKindInvalidPayload, resp.Error.Kind)
	assert.Equal(t, 0, rec.calls, "unreadable bodies must not reach the pipeline")
}

func TestStripeWebhook_IgnoredEventIsAcked(t *testing.T) {
	rec := &stubReconciler{result: services.RunResult{State: services.StateIgnored, EventType: "invoice.paid"}}
	pub := &stubPublisher{}
	r, _ := newTestRouter(&Pipeline{Cfg: &config.Config{}, Reconciler: rec, Publisher: pub})

	w := postWebhook(r, "{}")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received"`)
	assert.Equal(t, 1, rec.calls)
	assert.Empty(t, pub.events, "ignored events must not be published")
}

func TestStripeWebhook_ErroredRunReturnsKind(t *testing.T) {
	rec := &stubReconciler{result: services.RunResult{
		State: services.StateErrored,
		Err:   services.NewError(services.ErrKindSignatureVerification, "bad signature", nil),
	}}
	r, _ := newTestRouter(&Pipeline{Cfg: &config.Config{}, Reconciler: rec})

	w := postWebhook(r, "{}")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "signature_verification")
}

func TestStripeWebhook_DoneRunAcksAndPublishes(t *testing.T) {
	rec := &stubReconciler{result: services.RunResult{
		State:   services.StateDone,
		Session: &models.PaymentSession{ID: "cs_1", PaymentIntentID: "pi_1", CustomerEmail: "ann@example.com"},
		Order:   &models.WooOrder{ID: 55},
	}}
	pub := &stubPublisher{}
	r, _ := newTestRouter(&Pipeline{Cfg: &config.Config{}, Reconciler: rec, Publisher: pub})

	w := postWebhook(r, "{}")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"order_id":55`)

	assert.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, "order.reconciled", evt.Type)
	assert.Equal(t, "cs_1", evt.SessionID)
	assert.Equal(t, int64(55), evt.WooOrderID)
	assert.False(t, evt.Duplicate)
}

func TestStripeWebhook_DuplicateRunStillAcks(t *testing.T) {
	rec := &stubReconciler{result: services.RunResult{
		State:     services.StateExistingOrderFound,
		Session:   &models.PaymentSession{ID: "cs_1"},
		Duplicate: true,
	}}
	r, _ := newTestRouter(&Pipeline{Cfg: &config.Config{}, Reconciler: rec})

	w := postWebhook(r, "{}")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"duplicate":true`)
}

func TestStripeWebhook_PublishFailureDoesNotFailAck(t *testing.T) {
	rec := &stubReconciler{result: services.RunResult{
		State:   services.StateDone,
		Session: &models.PaymentSession{ID: "cs_1"},
		Order:   &models.WooOrder{ID: 1},
	}}
	pub := &stubPublisher{err: assert.AnError}
	r, _ := newTestRouter(&Pipeline{Cfg: &config.Config{}, Reconciler: rec, Publisher: pub})

	w := postWebhook(r, "{}")

	assert.Equal(t, http.StatusOK, w.Code)
}
