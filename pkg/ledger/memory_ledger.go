package ledger

import (
	"context"
	"sync"
)

// MemoryStore keeps transactions in process memory. Used in tests and
// single-instance development runs; it honors the same duplicate-key
// contract as the SQL store.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Transaction
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Transaction)}
}

func (s *MemoryStore) FindByIdempotencyKey(ctx context.Context, key string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.rows[key]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return txn, nil
}

func (s *MemoryStore) Save(ctx context.Context, txn Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[txn.IdempotencyKey]; exists {
		return ErrDuplicateKey
	}
	s.rows[txn.IdempotencyKey] = txn
	return nil
}

// Len reports the number of stored transactions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
