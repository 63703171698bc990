// Package balance manages per-customer funds and reservations. Reserve,
// Release, and Deduct are the only mutators of balance state; all three are
// serialized per customer through a lazily-built lock table so reservations
// for different customers never contend.
package balance

import (
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/util"
)

type account struct {
	balance  decimal.Decimal
	reserved decimal.Decimal
}

// Manager owns customer balance state. Accounts are created lazily with a
// zero balance on first reference.
type Manager struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	accounts map[string]*account
	log      *slog.Logger
}

// NewManager creates an empty balance manager.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		locks:    make(map[string]*sync.Mutex),
		accounts: make(map[string]*account),
		log:      log,
	}
}

// lockFor returns the customer's mutex, creating it on first use. Locks are
// never removed; the customer set is bounded by real usage.
func (m *Manager) lockFor(customerID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[customerID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[customerID] = l
	}
	return l
}

// accountFor must be called with the customer's lock held.
func (m *Manager) accountFor(customerID string) *account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[customerID]
	if !ok {
		a = &account{balance: decimal.Zero, reserved: decimal.Zero}
		m.accounts[customerID] = a
	}
	return a
}

// SetBalance seeds a customer's balance. Intended for wiring and tests.
func (m *Manager) SetBalance(customerID string, amount decimal.Decimal) {
	l := m.lockFor(customerID)
	l.Lock()
	defer l.Unlock()
	m.accountFor(customerID).balance = amount
}

// AvailableBalance returns balance minus currently reserved funds. This is
// the only balance figure decision logic ever sees.
func (m *Manager) AvailableBalance(customerID string) decimal.Decimal {
	l := m.lockFor(customerID)
	l.Lock()
	defer l.Unlock()
	a := m.accountFor(customerID)
	return a.balance.Sub(a.reserved)
}

// Reserve places a hold of amount against the customer's available balance.
// It succeeds iff balance - reserved >= amount; on failure nothing changes.
func (m *Manager) Reserve(customerID string, amount decimal.Decimal) bool {
	l := m.lockFor(customerID)
	l.Lock()
	defer l.Unlock()

	a := m.accountFor(customerID)
	available := a.balance.Sub(a.reserved)
	if available.LessThan(amount) {
		m.log.Warn("insufficient funds for reservation",
			"customer_id", util.MaskCustomerID(customerID),
			"available", available.String(),
			"requested", amount.String())
		return false
	}

	a.reserved = a.reserved.Add(amount)
	m.log.Info("amount reserved",
		"customer_id", util.MaskCustomerID(customerID),
		"amount", amount.String(),
		"reserved_total", a.reserved.String())
	return true
}

// Release undoes a hold. Reserved is floored at zero, guarding against a
// double release.
func (m *Manager) Release(customerID string, amount decimal.Decimal) {
	l := m.lockFor(customerID)
	l.Lock()
	defer l.Unlock()

	a := m.accountFor(customerID)
	a.reserved = a.reserved.Sub(amount)
	if a.reserved.IsNegative() {
		a.reserved = decimal.Zero
	}
	m.log.Info("reservation released",
		"customer_id", util.MaskCustomerID(customerID),
		"amount", amount.String(),
		"reserved_total", a.reserved.String())
}

// Deduct settles a held amount: balance and reserved both drop by amount,
// reserved floored at zero.
func (m *Manager) Deduct(customerID string, amount decimal.Decimal) {
	l := m.lockFor(customerID)
	l.Lock()
	defer l.Unlock()

	a := m.accountFor(customerID)
	a.balance = a.balance.Sub(amount)
	a.reserved = a.reserved.Sub(amount)
	if a.reserved.IsNegative() {
		a.reserved = decimal.Zero
	}
	m.log.Info("balance deducted",
		"customer_id", util.MaskCustomerID(customerID),
		"amount", amount.String(),
		"balance", a.balance.String())
}
