package tools

import (
	"context"
	"hash/fnv"
	"log/slog"

	"github.com/paynow-labs/paygate/pkg/domain"
	"github.com/paynow-labs/paygate/pkg/util"
)

// RiskLookup simulates the fraud-signal collaborator. Signals are derived
// deterministically from the customer id so repeated requests for the same
// customer see the same risk profile.
type RiskLookup struct {
	log *slog.Logger
}

// NewRiskLookup builds the risk evaluation tool.
func NewRiskLookup(log *slog.Logger) *RiskLookup {
	if log == nil {
		log = slog.Default()
	}
	return &RiskLookup{log: log}
}

// GetRiskSignals produces the risk profile for the customer.
func (t *RiskLookup) GetRiskSignals(ctx context.Context, customerID string) (domain.RiskSignals, error) {
	if err := ctx.Err(); err != nil {
		return domain.RiskSignals{}, err
	}
	t.log.Debug("fetching risk signals", "customer_id", util.MaskCustomerID(customerID))

	h := fnv.New32a()
	_, _ = h.Write([]byte(customerID))
	hash := int(h.Sum32())

	signals := domain.RiskSignals{
		RecentDisputes:        hash % 4,
		DeviceChange:          hash%7 == 0,
		VelocityViolation:     hash%5 == 0,
		DailyTransactionCount: hash%20 + 1,
	}

	switch {
	case signals.RecentDisputes >= 2 || signals.VelocityViolation:
		signals.RiskScore = domain.RiskHigh
	case signals.DeviceChange || signals.DailyTransactionCount > 15:
		signals.RiskScore = domain.RiskMedium
	default:
		signals.RiskScore = domain.RiskLow
	}

	return signals, nil
}
