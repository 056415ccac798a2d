package services

import (
	"context"
	"encoding/json"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/product"
	"github.com/stripe/stripe-go/v80/webhook"
)

// EventKind discriminates the verified webhook payloads the pipeline
// understands. Downstream code never re-inspects raw event JSON.
type EventKind string

const (
	EventCheckoutCompleted EventKind = "checkout_completed"
	EventIgnored           EventKind = "ignored"
)

// Event is the tagged result of signature verification. Session is set
// only when Kind is EventCheckoutCompleted.
type Event struct {
	Kind    EventKind
	Type    string
	Session *models.PaymentSession
}

const checkoutCompletedType = "checkout.session.completed"

type StripeService struct {
	webhookSecret    string
	lineItemPageSize int64
	maxPages         int
}

func NewStripeService(secretKey, webhookSecret string, lineItemPageSize, maxPages int) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		webhookSecret:    webhookSecret,
		lineItemPageSize: int64(lineItemPageSize),
		maxPages:         maxPages,
	}
}

// VerifyEvent authenticates the raw webhook body against the shared
// secret and parses it into a tagged event. Mismatched signatures and
// malformed payloads both fail verification; nothing else runs.
func (s *StripeService) VerifyEvent(payload []byte, sigHeader string) (Event, *ReconcileError) {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
	if err != nil {
		return Event{}, NewError(ErrKindSignatureVerification, "webhook signature verification failed", err)
	}

	if string(event.Type) != checkoutCompletedType {
		return Event{Kind: EventIgnored, Type: string(event.Type)}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return Event{}, NewError(ErrKindSignatureVerification, "malformed checkout session payload", err)
	}

	ps := &models.PaymentSession{ID: sess.ID}
	if sess.PaymentIntent != nil {
		ps.PaymentIntentID = sess.PaymentIntent.ID
	}
	if sess.CustomerDetails != nil {
		ps.CustomerEmail = sess.CustomerDetails.Email
		ps.CustomerName = sess.CustomerDetails.Name
	}
	return Event{Kind: EventCheckoutCompleted, Type: string(event.Type), Session: ps}, nil
}

// ListLineItems fetches the purchased line items for a checkout session.
// Iteration is capped so a misbehaving listing cannot loop forever.
func (s *StripeService) ListLineItems(ctx context.Context, sessionID string) ([]models.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
	params.Context = ctx
	params.Limit = stripe.Int64(s.lineItemPageSize)

	maxItems := int(s.lineItemPageSize) * s.maxPages
	var items []models.LineItem

	iter := session.ListLineItems(params)
	for iter.Next() {
		li := iter.LineItem()
		item := models.LineItem{
			Quantity:    li.Quantity,
			AmountTotal: li.AmountTotal,
		}
		if li.Price != nil && li.Price.Product != nil {
			item.ProductID = li.Price.Product.ID
		}
		items = append(items, item)
		if len(items) >= maxItems {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListProducts returns active Stripe products for the mapping surface.
func (s *StripeService) ListProducts(ctx context.Context, pageSize int) ([]models.StripeProduct, error) {
	params := &stripe.ProductListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(pageSize))

	maxItems := pageSize * s.maxPages
	var products []models.StripeProduct

	iter := product.List(params)
	for iter.Next() {
		p := iter.Product()
		products = append(products, models.StripeProduct{ID: p.ID, Name: p.Name})
		if len(products) >= maxItems {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return products, nil
}
