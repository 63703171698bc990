package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// SQLStore implements Store over database/sql. $1-style placeholders keep it
// working against both Postgres (lib/pq) and SQLite (modernc).
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS payment_transactions (
	idempotency_key TEXT PRIMARY KEY,
	request_id TEXT NOT NULL UNIQUE,
	customer_id TEXT NOT NULL,
	amount TEXT NOT NULL,
	currency TEXT NOT NULL,
	payee_id TEXT NOT NULL,
	decision TEXT NOT NULL,
	reasons TEXT NOT NULL,
	agent_trace TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payment_transactions_customer
	ON payment_transactions (customer_id);
`

// Init creates the transactions table if missing.
func (s *SQLStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLStore) FindByIdempotencyKey(ctx context.Context, key string) (Transaction, error) {
	query := `
		SELECT idempotency_key, request_id, customer_id, amount, currency,
		       payee_id, decision, reasons, agent_trace, created_at
		FROM payment_transactions WHERE idempotency_key = $1
	`
	row := s.db.QueryRowContext(ctx, query, key)

	var txn Transaction
	var amount string
	err := row.Scan(&txn.IdempotencyKey, &txn.RequestID, &txn.CustomerID, &amount,
		&txn.Currency, &txn.PayeeID, &txn.Decision, &txn.Reasons, &txn.Trace, &txn.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

// Save inserts the transaction. The uniqueness constraint on
// idempotency_key is the only defense against two requests racing past the
// cache check; a violation surfaces as ErrDuplicateKey so the caller can
// re-read the winner's row.
func (s *SQLStore) Save(ctx context.Context, txn Transaction) error {
	query := `
		INSERT INTO payment_transactions
			(idempotency_key, request_id, customer_id, amount, currency,
			 payee_id, decision, reasons, agent_trace, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		txn.IdempotencyKey, txn.RequestID, txn.CustomerID, txn.Amount.StringFixed(2),
		txn.Currency, txn.PayeeID, string(txn.Decision), txn.Reasons, txn.Trace, txn.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// isUniqueViolation recognizes constraint collisions from both supported
// drivers: pq error class 23505 and SQLite's textual constraint error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: payment_transactions")
}
