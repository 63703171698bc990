package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/domain"
)

var conservativeAmountThreshold = decimal.NewFromInt(50)

// ConservativeStrategy trades approval rate for lower risk tolerance: any
// dispute or velocity violation blocks outright, and MEDIUM risk is treated
// like HIGH.
type ConservativeStrategy struct{}

func (ConservativeStrategy) Name() string { return "conservative" }

func (ConservativeStrategy) Description() string {
	return "Conservative approach with lower risk tolerance"
}

func (ConservativeStrategy) Decide(req domain.PaymentRequest, available decimal.Decimal, signals domain.RiskSignals, reasons []string) (domain.Decision, []string) {
	if available.LessThan(req.Amount) {
		reasons = append(reasons, domain.ReasonInsufficientBalance)
		return domain.DecisionBlock, reasons
	}

	if req.Amount.GreaterThan(conservativeAmountThreshold) {
		reasons = append(reasons, domain.ReasonAmountAboveConserv)
	}
	if signals.RecentDisputes > 0 {
		reasons = append(reasons, domain.ReasonRecentDisputes)
		return domain.DecisionBlock, reasons
	}
	if signals.DeviceChange {
		reasons = append(reasons, domain.ReasonDeviceChange)
	}
	if signals.VelocityViolation {
		reasons = append(reasons, domain.ReasonVelocityViolation)
		return domain.DecisionBlock, reasons
	}
	if signals.DailyTransactionCount > 10 {
		reasons = append(reasons, domain.ReasonHighFrequency)
	}

	if signals.RiskScore == domain.RiskHigh || signals.RiskScore == domain.RiskMedium {
		return domain.DecisionBlock, reasons
	}
	if len(reasons) >= 1 {
		return domain.DecisionReview, reasons
	}
	return domain.DecisionAllow, reasons
}
