package services

import (
	"context"
	"errors"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"
	"github.com/k0go07022003/StripeWoocommerce-Sync/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunState is the pipeline position for one notification.
type RunState string

const (
	StateReceived           RunState = "received"
	StateVerified           RunState = "verified"
	StateIgnored            RunState = "ignored"
	StateIdempotencyChecked RunState = "idempotency_checked"
	StateExistingOrderFound RunState = "existing_order_found"
	StateMapped             RunState = "mapped"
	StateCustomerResolved   RunState = "customer_resolved"
	StateSubmitted          RunState = "submitted"
	StateDone               RunState = "done"
	StateErrored            RunState = "errored"
)

// RunResult is the single terminal outcome of one notification run.
type RunResult struct {
	RunID           string
	State           RunState
	EventType       string
	Session         *models.PaymentSession
	Order           *models.WooOrder
	Duplicate       bool
	MappingFailures []MappingFailure
	Err             *ReconcileError
}

// Component interfaces, sized for what the pipeline calls. The concrete
// implementations live alongside in this package.
type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (Event, *ReconcileError)
}

type LineItemLister interface {
	ListLineItems(ctx context.Context, sessionID string) ([]models.LineItem, error)
}

type ExistingOrderFinder interface {
	FindExistingOrder(ctx context.Context, sessionID string) (*models.WooOrder, error)
}

type ItemMapper interface {
	Map(ctx context.Context, sessionID string, items []models.LineItem) ([]models.WooLineItem, []MappingFailure, *ReconcileError)
}

type CustomerResolverAPI interface {
	Resolve(ctx context.Context, email, name string) (*models.WooCustomer, *ReconcileError)
}

type OrderSubmitterAPI interface {
	Submit(ctx context.Context, customer *models.WooCustomer, lineItems []models.WooLineItem, session *models.PaymentSession) (*models.WooOrder, *ReconcileError)
}

type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID int64) (*models.WooOrder, error)
}

// Reconciler drives a verified checkout session through idempotency
// checking, line-item mapping, customer resolution and order submission.
// One Run per notification; no internal parallelism.
type Reconciler struct {
	verifier    EventVerifier
	lineItems   LineItemLister
	idempotency ExistingOrderFinder
	ledger      repository.LedgerRepository
	mapper      ItemMapper
	customers   CustomerResolverAPI
	submitter   OrderSubmitterAPI
	orders      OrderFetcher
	logger      *zap.Logger
}

func NewReconciler(
	verifier EventVerifier,
	lineItems LineItemLister,
	idempotency ExistingOrderFinder,
	ledger repository.LedgerRepository,
	mapper ItemMapper,
	customers CustomerResolverAPI,
	submitter OrderSubmitterAPI,
	orders OrderFetcher,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		verifier:    verifier,
		lineItems:   lineItems,
		idempotency: idempotency,
		ledger:      ledger,
		mapper:      mapper,
		customers:   customers,
		submitter:   submitter,
		orders:      orders,
		logger:      logger,
	}
}

// Run processes a single raw notification to a terminal state.
func (r *Reconciler) Run(ctx context.Context, payload []byte, sigHeader string) RunResult {
	result := RunResult{RunID: uuid.NewString(), State: StateReceived}

	event, rerr := r.verifier.VerifyEvent(payload, sigHeader)
	if rerr != nil {
		return r.errored(result, rerr)
	}
	result.State = StateVerified
	result.EventType = event.Type

	if event.Kind != EventCheckoutCompleted {
		result.State = StateIgnored
		r.logger.Info("Ignoring webhook event",
			zap.String("run_id", result.RunID),
			zap.String("event_type", event.Type),
		)
		return result
	}

	session := event.Session
	result.Session = session
	r.transition(&result, StateVerified, session.ID)

	// Storage-level idempotency claim. Winning the insert is the license
	// to create an order; a conflict is a duplicate notification.
	existingRow, err := r.ledger.Claim(ctx, session.ID, session.PaymentIntentID)
	if err != nil {
		if errors.Is(err, repository.ErrClaimHeld) {
			r.logger.Info("Concurrent run holds the session claim, acknowledging duplicate",
				zap.String("run_id", result.RunID),
				zap.String("session_id", session.ID),
			)
			result.State = StateExistingOrderFound
			result.Duplicate = true
			return result
		}
		return r.errored(result, NewError(ErrKindTransientNetwork, "idempotency ledger unavailable", err), session.ID)
	}
	claimed := existingRow == nil
	result.State = StateIdempotencyChecked

	if existingRow != nil {
		result.Duplicate = true
		result.State = StateExistingOrderFound
		result.Order = r.fetchOrder(ctx, existingRow.WooOrderID, session.ID)
		r.transition(&result, StateDone, session.ID)
		return result
	}

	// Lookback scan covers orders created before the ledger existed or
	// by other writers. A scan failure is logged, not fatal: the claim
	// above already protects against concurrent duplicates.
	existing, err := r.idempotency.FindExistingOrder(ctx, session.ID)
	if err != nil {
		r.logger.Warn("Order lookback scan failed, continuing on ledger only",
			zap.String("run_id", result.RunID),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
	if existing != nil {
		if err := r.ledger.Complete(ctx, session.ID, existing.ID); err != nil {
			r.logger.Warn("Failed to backfill ledger for existing order",
				zap.String("session_id", session.ID), zap.Error(err))
		}
		result.Duplicate = true
		result.Order = existing
		result.State = StateExistingOrderFound
		r.transition(&result, StateDone, session.ID)
		return result
	}

	items, err := r.lineItems.ListLineItems(ctx, session.ID)
	if err != nil {
		r.release(ctx, claimed, session.ID)
		return r.errored(result, NewError(ErrKindTransientNetwork, "failed to list session line items", err), session.ID)
	}
	session.LineItems = items

	mapped, failures, rerr := r.mapper.Map(ctx, session.ID, items)
	result.MappingFailures = failures
	if rerr != nil {
		r.release(ctx, claimed, session.ID)
		return r.errored(result, rerr, session.ID)
	}
	r.transition(&result, StateMapped, session.ID)

	customer, rerr := r.customers.Resolve(ctx, session.CustomerEmail, session.CustomerName)
	if rerr != nil {
		r.release(ctx, claimed, session.ID)
		return r.errored(result, rerr, session.ID)
	}
	r.transition(&result, StateCustomerResolved, session.ID)

	order, rerr := r.submitter.Submit(ctx, customer, mapped, session)
	if rerr != nil {
		r.release(ctx, claimed, session.ID)
		return r.errored(result, rerr, session.ID)
	}
	result.Order = order
	r.transition(&result, StateSubmitted, session.ID)

	// If this update fails the claim row stays open, which still blocks
	// duplicates; it just can no longer report the order id.
	if err := r.ledger.Complete(ctx, session.ID, order.ID); err != nil {
		r.logger.Warn("Failed to record order in ledger",
			zap.String("session_id", session.ID),
			zap.Int64("woo_order_id", order.ID),
			zap.Error(err),
		)
	}

	r.transition(&result, StateDone, session.ID)
	r.logger.Info("Reconciliation completed",
		zap.String("run_id", result.RunID),
		zap.String("session_id", session.ID),
		zap.Int64("woo_order_id", order.ID),
		zap.Int("skipped_items", len(failures)),
	)
	return result
}

func (r *Reconciler) transition(result *RunResult, state RunState, sessionID string) {
	result.State = state
	r.logger.Debug("Pipeline transition",
		zap.String("run_id", result.RunID),
		zap.String("session_id", sessionID),
		zap.String("state", string(state)),
	)
}

func (r *Reconciler) errored(result RunResult, rerr *ReconcileError, sessionID ...string) RunResult {
	result.State = StateErrored
	result.Err = rerr
	fields := []zap.Field{
		zap.String("run_id", result.RunID),
		zap.String("kind", string(rerr.Kind)),
		zap.Error(rerr),
	}
	if len(sessionID) > 0 {
		fields = append(fields, zap.String("session_id", sessionID[0]))
	}
	r.logger.Error("Reconciliation failed", fields...)
	return result
}

func (r *Reconciler) release(ctx context.Context, claimed bool, sessionID string) {
	if !claimed {
		return
	}
	if err := r.ledger.Release(ctx, sessionID); err != nil {
		r.logger.Warn("Failed to release session claim",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// fetchOrder loads the order recorded in the ledger, best effort. When
// the store cannot be reached the duplicate ack still carries the id.
func (r *Reconciler) fetchOrder(ctx context.Context, orderID int64, sessionID string) *models.WooOrder {
	if orderID == 0 {
		return nil
	}
	order, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		r.logger.Warn("Failed to fetch existing order",
			zap.String("session_id", sessionID),
			zap.Int64("woo_order_id", orderID),
			zap.Error(err),
		)
		return &models.WooOrder{ID: orderID}
	}
	return order
}
