package tools

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/balance"
	"github.com/paynow-labs/paygate/pkg/util"
)

// BalanceLookup reads a customer's available balance from the balance
// manager.
type BalanceLookup struct {
	balances *balance.Manager
	log      *slog.Logger
}

// NewBalanceLookup builds the balance evaluation tool.
func NewBalanceLookup(balances *balance.Manager, log *slog.Logger) *BalanceLookup {
	if log == nil {
		log = slog.Default()
	}
	return &BalanceLookup{balances: balances, log: log}
}

// GetAvailableBalance returns balance minus reserved for the customer.
func (t *BalanceLookup) GetAvailableBalance(ctx context.Context, customerID string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	t.log.Debug("fetching balance", "customer_id", util.MaskCustomerID(customerID))
	return t.balances.AvailableBalance(customerID), nil
}
