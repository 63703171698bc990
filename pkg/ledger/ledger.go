// Package ledger persists completed payment decisions. Each transaction is
// an append-only projection of one decision run, keyed uniquely by the
// caller's idempotency key; the uniqueness constraint is what makes
// duplicate submissions collapse to a single processing outcome.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/domain"
)

var (
	// ErrNotFound is returned when no transaction exists for a key.
	ErrNotFound = errors.New("transaction not found")
	// ErrDuplicateKey is returned when a save collides with an existing
	// idempotency key. Callers resolve the race by re-reading.
	ErrDuplicateKey = errors.New("idempotency key already exists")
)

// Transaction is the durable record of one decision. Created once, never
// mutated afterwards. Reasons and Trace are stored serialized so the replay
// path can return them verbatim.
type Transaction struct {
	IdempotencyKey string
	RequestID      string
	CustomerID     string
	Amount         decimal.Decimal
	Currency       string
	PayeeID        string
	Decision       domain.Decision
	Reasons        string // JSON array of reason codes
	Trace          string // JSON array of trace steps
	CreatedAt      time.Time
}

// Store is the durable keyed store for transactions.
type Store interface {
	// FindByIdempotencyKey returns the transaction for key, or ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, key string) (Transaction, error)

	// Save persists a new transaction. A collision on the idempotency key
	// returns ErrDuplicateKey and leaves the existing row untouched.
	Save(ctx context.Context, txn Transaction) error
}

// NewTransaction projects a decision result onto a ledger record,
// serializing reasons and trace. Serialization failure degrades to empty
// arrays rather than losing the transaction.
func NewTransaction(req domain.PaymentRequest, result domain.DecisionResult, requestID string, now time.Time) Transaction {
	txn := Transaction{
		IdempotencyKey: req.IdempotencyKey,
		RequestID:      requestID,
		CustomerID:     req.CustomerID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PayeeID:        req.PayeeID,
		Decision:       result.Decision,
		Reasons:        "[]",
		Trace:          "[]",
		CreatedAt:      now,
	}
	if b, err := json.Marshal(result.Reasons); err == nil {
		txn.Reasons = string(b)
	}
	if b, err := json.Marshal(result.Trace); err == nil {
		txn.Trace = string(b)
	}
	return txn
}

// DecodeResult reconstructs the decision result stored in the transaction.
// Corrupt serialized state is an error; callers must fail closed on it.
func (t Transaction) DecodeResult() (domain.DecisionResult, error) {
	var reasons []string
	if err := json.Unmarshal([]byte(t.Reasons), &reasons); err != nil {
		return domain.DecisionResult{}, fmt.Errorf("corrupt reasons for key %s: %w", t.IdempotencyKey, err)
	}
	var trace []domain.TraceStep
	if err := json.Unmarshal([]byte(t.Trace), &trace); err != nil {
		return domain.DecisionResult{}, fmt.Errorf("corrupt trace for key %s: %w", t.IdempotencyKey, err)
	}
	return domain.DecisionResult{Decision: t.Decision, Reasons: reasons, Trace: trace}, nil
}
