package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"
	"github.com/k0go07022003/StripeWoocommerce-Sync/repository"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// Hand-rolled collaborators so call counts stay observable under
// concurrency.

type fakeVerifier struct {
	event Event
	err   *ReconcileError
}

func (f *fakeVerifier) VerifyEvent(payload []byte, sigHeader string) (Event, *ReconcileError) {
	return f.event, f.err
}

type fakeLineItems struct {
	items []models.LineItem
	err   error
	calls int64
}

func (f *fakeLineItems) ListLineItems(ctx context.Context, sessionID string) ([]models.LineItem, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.items, f.err
}

type fakeFinder struct {
	order *models.WooOrder
	err   error
	calls int64
}

func (f *fakeFinder) FindExistingOrder(ctx context.Context, sessionID string) (*models.WooOrder, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.order, f.err
}

type fakeMapper struct {
	mapped   []models.WooLineItem
	failures []MappingFailure
	err      *ReconcileError
	calls    int64
}

func (f *fakeMapper) Map(ctx context.Context, sessionID string, items []models.LineItem) ([]models.WooLineItem, []MappingFailure, *ReconcileError) {
	atomic.AddInt64(&f.calls, 1)
	return f.mapped, f.failures, f.err
}

type fakeResolver struct {
	customer *models.WooCustomer
	err      *ReconcileError
	calls    int64
}

func (f *fakeResolver) Resolve(ctx context.Context, email, name string) (*models.WooCustomer, *ReconcileError) {
	atomic.AddInt64(&f.calls, 1)
	return f.customer, f.err
}

type fakeSubmitter struct {
	order *models.WooOrder
	err   *ReconcileError
	delay time.Duration
	calls int64
}

func (f *fakeSubmitter) Submit(ctx context.Context, customer *models.WooCustomer, lineItems []models.WooLineItem, session *models.PaymentSession) (*models.WooOrder, *ReconcileError) {
	atomic.AddInt64(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.order, f.err
}

type fakeOrders struct {
	order *models.WooOrder
	err   error
}

func (f *fakeOrders) GetOrder(ctx context.Context, orderID int64) (*models.WooOrder, error) {
	return f.order, f.err
}

// fakeLedger mimics the unique-constraint semantics of the gorm repo.
type fakeLedger struct {
	mu   sync.Mutex
	rows map[string]*models.ReconciledOrder
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: map[string]*models.ReconciledOrder{}}
}

func (l *fakeLedger) Claim(ctx context.Context, sessionID, paymentIntentID string) (*models.ReconciledOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.rows[sessionID]; ok {
		if row.WooOrderID == 0 {
			return nil, repository.ErrClaimHeld
		}
		copied := *row
		return &copied, nil
	}
	l.rows[sessionID] = &models.ReconciledOrder{SessionID: sessionID, PaymentIntentID: paymentIntentID}
	return nil, nil
}

func (l *fakeLedger) Complete(ctx context.Context, sessionID string, wooOrderID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.rows[sessionID]; ok {
		row.WooOrderID = wooOrderID
	}
	return nil
}

func (l *fakeLedger) Release(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.rows[sessionID]; ok && row.WooOrderID == 0 {
		delete(l.rows, sessionID)
	}
	return nil
}

func (l *fakeLedger) Find(ctx context.Context, sessionID string) (*models.ReconciledOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.rows[sessionID]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, errors.New("not found")
}

func checkoutEvent(sessionID string) Event {
	return Event{
		Kind: EventCheckoutCompleted,
		Type: "checkout.session.completed",
		Session: &models.PaymentSession{
			ID:              sessionID,
			PaymentIntentID: "pi_1",
			CustomerEmail:   "ann@example.com",
			CustomerName:    "Ann",
		},
	}
}

type pipelineFakes struct {
	verifier  *fakeVerifier
	lineItems *fakeLineItems
	finder    *fakeFinder
	ledger    *fakeLedger
	mapper    *fakeMapper
	resolver  *fakeResolver
	submitter *fakeSubmitter
	orders    *fakeOrders
}

func happyFakes(sessionID string) *pipelineFakes {
	return &pipelineFakes{
		verifier:  &fakeVerifier{event: checkoutEvent(sessionID)},
		lineItems: &fakeLineItems{items: []models.LineItem{{ProductID: "prod_1", Quantity: 1, AmountTotal: 500}}},
		finder:    &fakeFinder{},
		ledger:    newFakeLedger(),
		mapper:    &fakeMapper{mapped: []models.WooLineItem{{ProductID: 11, Quantity: 1, Total: "5.00"}}},
		resolver:  &fakeResolver{customer: &models.WooCustomer{ID: 42}},
		submitter: &fakeSubmitter{order: &models.WooOrder{ID: 900}},
		orders:    &fakeOrders{},
	}
}

func (f *pipelineFakes) reconciler() *Reconciler {
	return NewReconciler(f.verifier, f.lineItems, f.finder, f.ledger, f.mapper, f.resolver, f.submitter, f.orders, zap.NewNop())
}

func TestRun_IgnoresOtherEventTypes(t *testing.T) {
	f := happyFakes("cs_1")
	f.verifier.event = Event{Kind: EventIgnored, Type: "invoice.paid"}

	result := f.reconciler().Run(context.Background(), []byte("{}"), "sig")

	assert.Equal(t, StateIgnored, result.State)
	assert.Nil(t, result.Err)
	assert.Zero(t, atomic.LoadInt64(&f.finder.calls))
	assert.Zero(t, atomic.LoadInt64(&f.mapper.calls))
	assert.Zero(t, atomic.LoadInt64(&f.resolver.calls))
	assert.Zero(t, atomic.LoadInt64(&f.submitter.calls))
	assert.Empty(t, f.ledger.rows)
}

func TestRun_SignatureFailureHasNoSideEffects(t *testing.T) {
	f := happyFakes("cs_1")
	f.verifier.event = Event{}
	f.verifier.err = NewError(ErrKindSignatureVerification, "bad signature", nil)

	result := f.reconciler().Run(context.Background(), []byte("{}"), "bad")

	assert.Equal(t, StateErrored, result.State)
	assert.True(t, IsKind(result.Err, ErrKindSignatureVerification))
	assert.Zero(t, atomic.LoadInt64(&f.finder.calls))
	assert.Zero(t, atomic.LoadInt64(&f.mapper.calls))
	assert.Zero(t, atomic.LoadInt64(&f.resolver.calls))
	assert.Zero(t, atomic.LoadInt64(&f.submitter.calls))
	assert.Empty(t, f.ledger.rows)
}

func TestRun_HappyPathCreatesOrderAndCompletesLedger(t *testing.T) {
	f := happyFakes("cs_1")

	result := f.reconciler().Run(context.Background(), []byte("{}"), "sig")

	assert.Equal(t, StateDone, result.State)
	assert.Nil(t, result.Err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, int64(900), result.Order.ID)
	assert.Equal(t, int64(1), atomic.LoadInt64(&f.submitter.calls))

	row, err := f.ledger.Find(context.Background(), "cs_1")
	assert.NoError(t, err)
	assert.Equal(t, int64(900), row.WooOrderID)
}

func TestRun_CompletedLedgerRowShortCircuits(t *testing.T) {
	f := happyFakes("cs_1")
	f.ledger.rows["cs_1"] = &models.ReconciledOrder{SessionID: "cs_1", WooOrderID: 700}
	f.orders.order = &models.WooOrder{ID: 700, Status: "completed"}

	result := f.reconciler().Run(context.Background(), []byte("{}"), "sig")

	assert.Equal(t, StateDone, result.State)
	assert.True(t, result.Duplicate)
	assert.Equal(t, int64(700), result.Order.ID)
	assert.Zero(t, atomic.LoadInt64(&f.submitter.calls))
	assert.Zero(t, atomic.LoadInt64(&f.resolver.calls))
}

func TestRun_LookbackMatchShortCircuitsAndBackfillsLedger(t *testing.T) {
	f := happyFakes("cs_1")
	f.finder.order = &models.WooOrder{ID: 600, MetaData: []models.WooMeta{{Key: models.MetaKeySessionID, Value: "cs_1"}}}

	result := f.reconciler().Run(context.Background(), []byte("{}"), "sig")

	assert.Equal(t, StateDone, result.State)
	assert.True(t, result.Duplicate)
	assert.Equal(t, int64(600), result.Order.ID)
	assert.Zero(t, atomic.LoadInt64(&f.submitter.calls))

	row, err := f.ledger.Find(context.Background(), "cs_1")
	assert.NoError(t, err)
	assert.Equal(t, int64(600), row.WooOrderID)
}

func TestRun_NoMappableItemsAbortsAndReleasesClaim(t *testing.T) {
	f := happyFakes("cs_1")
	f.mapper.mapped = nil
	f.mapper.failures = []MappingFailure{{ProductID: "prod_1"}}
	f.mapper.err = NewError(ErrKindNoMappableItems, "no line items could be mapped", nil)

	result := f.reconciler().Run(context.Background(), []byte("{}"), "sig")

	assert.Equal(t, StateErrored, result.State)
	assert.True(t, IsKind(result.Err, ErrKindNoMappableItems))
	assert.Len(t, result.MappingFailures, 1)
	assert.Zero(t, atomic.LoadInt64(&f.submitter.calls))
	assert.Empty(t, f.ledger.rows, "failed run must release its claim")
}

func TestRun_SubmitFailureReleasesClaim(t *testing.T) {
	f := happyFakes("cs_1")
	f.submitter.order = nil
	f.submitter.err = NewError(ErrKindOrderCreation, "backend rejected order", nil)

	result := f.reconciler().Run(context.Background(), []byte("{}"), "sig")

	assert.Equal(t, StateErrored, result.State)
	assert.True(t, IsKind(result.Err, ErrKindOrderCreation))
	assert.Empty(t, f.ledger.rows)
}

func TestRun_PartialMappingStillCreatesOrder(t *testing.T) {
	f := happyFakes("cs_1")
	f.mapper.failures = []MappingFailure{{ProductID: "prod_unmapped"}}

	result := f.reconciler().Run(context.Background(), []byte("{}"), "sig")

	assert.Equal(t, StateDone, result.State)
	assert.Len(t, result.MappingFailures, 1)
	assert.Equal(t, int64(1), atomic.LoadInt64(&f.submitter.calls))
}

func TestRun_LookbackScanFailureDoesNotAbort(t *testing.T) {
	f := happyFakes("cs_1")
	f.finder.err = errors.New("store search timed out")

	result := f.reconciler().Run(context.Background(), []byte("{}"), "sig")

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, int64(1), atomic.LoadInt64(&f.submitter.calls))
}

// Two concurrent notifications for one session must produce one order.
func TestRun_ConcurrentSameSessionCreatesAtMostOneOrder(t *testing.T) {
	f := happyFakes("cs_race")
	f.submitter.delay = 50 * time.Millisecond

	rec := f.reconciler()
	results := make([]RunResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = rec.Run(context.Background(), []byte("{}"), "sig")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&f.submitter.calls), "only one run may submit")
	for _, r := range results {
		assert.NotEqual(t, StateErrored, r.State)
	}

	var doneRuns, duplicateRuns int
	for _, r := range results {
		if r.Duplicate {
			duplicateRuns++
		} else {
			doneRuns++
			assert.Equal(t, StateDone, r.State)
		}
	}
	assert.Equal(t, 1, doneRuns)
	assert.Equal(t, 1, duplicateRuns)

	row, err := f.ledger.Find(context.Background(), "cs_race")
	assert.NoError(t, err)
	assert.Equal(t, int64(900), row.WooOrderID)
}
