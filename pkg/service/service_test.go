package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paynow-labs/paygate/pkg/domain"
	"github.com/paynow-labs/paygate/pkg/events"
	"github.com/paynow-labs/paygate/pkg/ledger"
	"github.com/paynow-labs/paygate/pkg/ratelimit"
)

type stubProcessor struct {
	calls  atomic.Int64
	result domain.DecisionResult
}

func (p *stubProcessor) Decide(ctx context.Context, req domain.PaymentRequest, strategyName string) domain.DecisionResult {
	p.calls.Add(1)
	return p.result
}

type stubReserver struct {
	mu       sync.Mutex
	reject   bool
	reserves int
	releases int
}

func (r *stubReserver) Reserve(customerID string, amount decimal.Decimal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.reserves++
	return true
}

func (r *stubReserver) Release(customerID string, amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases++
}

func (r *stubReserver) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserves, r.releases
}

type stubPublisher struct {
	mu     sync.Mutex
	events []events.DecisionEvent
}

func (p *stubPublisher) Publish(event events.DecisionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *stubPublisher) published() []events.DecisionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.DecisionEvent, len(p.events))
	copy(out, p.events)
	return out
}

// raceStore simulates losing the insert race: the initial lookup misses,
// the save collides, and the follow-up lookup returns the winner's row.
type raceStore struct {
	mu     sync.Mutex
	winner ledger.Transaction
	finds  int
}

func (s *raceStore) FindByIdempotencyKey(ctx context.Context, key string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.finds == 1 {
		return ledger.Transaction{}, ledger.ErrNotFound
	}
	return s.winner, nil
}

func (s *raceStore) Save(ctx context.Context, txn ledger.Transaction) error {
	return ledger.ErrDuplicateKey
}

type brokenStore struct{}

func (brokenStore) FindByIdempotencyKey(ctx context.Context, key string) (ledger.Transaction, error) {
	return ledger.Transaction{}, ledger.ErrNotFound
}

func (brokenStore) Save(ctx context.Context, txn ledger.Transaction) error {
	return errors.New("disk full")
}

func allowResult() domain.DecisionResult {
	return domain.DecisionResult{
		Decision: domain.DecisionAllow,
		Reasons:  []string{},
		Trace: []domain.TraceStep{
			{Step: "plan", Detail: "Check balance, risk, and limits"},
			{Step: "tool:recommend", Detail: "route to allow"},
		},
	}
}

func sampleRequest() domain.PaymentRequest {
	return domain.PaymentRequest{
		CustomerID:     "c_customer_001",
		Amount:         decimal.NewFromInt(100),
		Currency:       "USD",
		PayeeID:        "p_merchant_001",
		IdempotencyKey: "key_0123456789",
	}
}

func newTestService(store ledger.Store, processor DecisionProcessor, balances Reserver, publisher EventPublisher) *Service {
	gate := ratelimit.NewGate(ratelimit.NewMemoryStore(ratelimit.DefaultPolicy()))
	return New(store, processor, balances, gate, publisher, nil)
}

func TestDecidePaymentAllowPersistsAndEmits(t *testing.T) {
	store := ledger.NewMemoryStore()
	reserver := &stubReserver{}
	publisher := &stubPublisher{}
	svc := newTestService(store, &stubProcessor{result: allowResult()}, reserver, publisher)

	resp := svc.DecidePayment(context.Background(), sampleRequest())

	assert.Equal(t, domain.DecisionAllow, resp.Decision)
	assert.Empty(t, resp.Reasons)
	assert.Regexp(t, `^req_[0-9a-f]{12}$`, resp.RequestID)

	txn, err := store.FindByIdempotencyKey(context.Background(), "key_0123456789")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAllow, txn.Decision)
	assert.Equal(t, resp.RequestID, txn.RequestID)

	reserves, releases := reserver.counts()
	assert.Equal(t, 1, reserves)
	assert.Equal(t, 0, releases)

	got := publisher.published()
	require.Len(t, got, 1)
	assert.Equal(t, resp.RequestID, got[0].RequestID)
	assert.Equal(t, domain.DecisionAllow, got[0].Decision)
	assert.Regexp(t, `^evt_[0-9a-f]{12}$`, got[0].EventID)
}

func TestDecidePaymentReplaysStoredDecision(t *testing.T) {
	store := ledger.NewMemoryStore()
	processor := &stubProcessor{result: allowResult()}
	reserver := &stubReserver{}
	publisher := &stubPublisher{}
	svc := newTestService(store, processor, reserver, publisher)

	first := svc.DecidePayment(context.Background(), sampleRequest())
	second := svc.DecidePayment(context.Background(), sampleRequest())

	assert.Equal(t, first.RequestID, second.RequestID)
	assert.Equal(t, first.Decision, second.Decision)
	assert.Equal(t, first.Reasons, second.Reasons)
	assert.Equal(t, first.Trace, second.Trace)

	// The replay does no new work: one orchestration, one hold, one event.
	assert.Equal(t, int64(1), processor.calls.Load())
	reserves, _ := reserver.counts()
	assert.Equal(t, 1, reserves)
	assert.Len(t, publisher.published(), 1)
}

func TestDecidePaymentDowngradesWhenReservationFails(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := newTestService(store, &stubProcessor{result: allowResult()}, &stubReserver{reject: true}, nil)

	resp := svc.DecidePayment(context.Background(), sampleRequest())

	assert.Equal(t, domain.DecisionBlock, resp.Decision)
	assert.Equal(t, []string{domain.ReasonInsufficientFunds}, resp.Reasons)
	// The trace from the decision run survives the downgrade.
	require.NotEmpty(t, resp.Trace)
	assert.Equal(t, "plan", resp.Trace[0].Step)

	txn, err := store.FindByIdempotencyKey(context.Background(), "key_0123456789")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionBlock, txn.Decision)
}

func TestDecidePaymentNonAllowSkipsReservation(t *testing.T) {
	store := ledger.NewMemoryStore()
	reserver := &stubReserver{}
	result := domain.DecisionResult{
		Decision: domain.DecisionReview,
		Reasons:  []string{domain.ReasonAmountAboveDaily},
		Trace:    []domain.TraceStep{{Step: "plan", Detail: "Check balance, risk, and limits"}},
	}
	svc := newTestService(store, &stubProcessor{result: result}, reserver, nil)

	resp := svc.DecidePayment(context.Background(), sampleRequest())

	assert.Equal(t, domain.DecisionReview, resp.Decision)
	reserves, _ := reserver.counts()
	assert.Equal(t, 0, reserves)
}

func TestDecidePaymentFailsClosedOnCorruptStoredRow(t *testing.T) {
	store := ledger.NewMemoryStore()
	req := sampleRequest()
	txn := ledger.NewTransaction(req, allowResult(), "req_abc123def456", time.Now().UTC())
	txn.Trace = `{broken`
	require.NoError(t, store.Save(context.Background(), txn))

	svc := newTestService(store, &stubProcessor{result: allowResult()}, &stubReserver{}, nil)
	resp := svc.DecidePayment(context.Background(), req)

	assert.Equal(t, domain.DecisionBlock, resp.Decision)
	assert.Equal(t, []string{domain.ReasonSystemError}, resp.Reasons)
	assert.Equal(t, "req_abc123def456", resp.RequestID)
}

func TestDecidePaymentReplaysWinnerOnInsertRace(t *testing.T) {
	req := sampleRequest()
	winnerResult := domain.DecisionResult{
		Decision: domain.DecisionReview,
		Reasons:  []string{domain.ReasonAmountAboveDaily},
		Trace:    []domain.TraceStep{{Step: "plan", Detail: "Check balance, risk, and limits"}},
	}
	store := &raceStore{winner: ledger.NewTransaction(req, winnerResult, "req_winner000001", time.Now().UTC())}
	reserver := &stubReserver{}
	publisher := &stubPublisher{}
	svc := newTestService(store, &stubProcessor{result: allowResult()}, reserver, publisher)

	resp := svc.DecidePayment(context.Background(), req)

	assert.Equal(t, domain.DecisionReview, resp.Decision)
	assert.Equal(t, "req_winner000001", resp.RequestID)

	// The loser's hold is undone and no event is emitted for it.
	reserves, releases := reserver.counts()
	assert.Equal(t, 1, reserves)
	assert.Equal(t, 1, releases)
	assert.Empty(t, publisher.published())
}

func TestDecidePaymentReleasesHoldOnPersistenceFailure(t *testing.T) {
	reserver := &stubReserver{}
	publisher := &stubPublisher{}
	svc := newTestService(brokenStore{}, &stubProcessor{result: allowResult()}, reserver, publisher)

	resp := svc.DecidePayment(context.Background(), sampleRequest())

	assert.Equal(t, domain.DecisionBlock, resp.Decision)
	assert.Equal(t, []string{domain.ReasonSystemError}, resp.Reasons)

	reserves, releases := reserver.counts()
	assert.Equal(t, 1, reserves)
	assert.Equal(t, 1, releases)
	assert.Empty(t, publisher.published())
}

func TestDecidePaymentConcurrentSameKey(t *testing.T) {
	store := ledger.NewMemoryStore()
	processor := &stubProcessor{result: allowResult()}
	reserver := &stubReserver{}
	publisher := &stubPublisher{}
	svc := newTestService(store, processor, reserver, publisher)

	const workers = 20
	responses := make([]Response, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i] = svc.DecidePayment(context.Background(), sampleRequest())
		}(i)
	}
	wg.Wait()

	// Every caller observes the single winning outcome.
	for _, resp := range responses {
		assert.Equal(t, responses[0].RequestID, resp.RequestID)
		assert.Equal(t, domain.DecisionAllow, resp.Decision)
	}
	assert.Equal(t, 1, store.Len())
	assert.Len(t, publisher.published(), 1)

	// Exactly one hold survives; every losing reservation was released.
	reserves, releases := reserver.counts()
	assert.Equal(t, reserves-1, releases)
}

func TestCheckAdmissionDeniesOnExhaustedBucket(t *testing.T) {
	gate := ratelimit.NewGate(ratelimit.NewMemoryStore(ratelimit.Policy{Capacity: 1, RefillPerSec: 0}))
	svc := New(ledger.NewMemoryStore(), &stubProcessor{result: allowResult()}, &stubReserver{}, gate, nil, nil)

	first := svc.CheckAdmission(context.Background(), "c_customer_001")
	assert.True(t, first.Allowed)

	second := svc.CheckAdmission(context.Background(), "c_customer_001")
	assert.False(t, second.Allowed)
	assert.Equal(t, second.RetryAfter.Seconds(), 1.0)
}
