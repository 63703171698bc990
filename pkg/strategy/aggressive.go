package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/domain"
)

var aggressiveAmountThreshold = decimal.NewFromInt(500)

// AggressiveStrategy favors approvals: higher amount threshold, tolerance
// for up to two disputes, and BLOCK only when HIGH risk coincides with a
// heavy dispute history.
type AggressiveStrategy struct{}

func (AggressiveStrategy) Name() string { return "aggressive" }

func (AggressiveStrategy) Description() string {
	return "Aggressive approach with higher risk tolerance for better UX"
}

func (AggressiveStrategy) Decide(req domain.PaymentRequest, available decimal.Decimal, signals domain.RiskSignals, reasons []string) (domain.Decision, []string) {
	if available.LessThan(req.Amount) {
		reasons = append(reasons, domain.ReasonInsufficientBalance)
		return domain.DecisionBlock, reasons
	}

	if req.Amount.GreaterThan(aggressiveAmountThreshold) {
		reasons = append(reasons, domain.ReasonAmountAboveAggressive)
	}
	if signals.RecentDisputes >= 3 {
		reasons = append(reasons, domain.ReasonMultipleDisputes)
	}
	if signals.DeviceChange && signals.RecentDisputes > 0 {
		reasons = append(reasons, domain.ReasonDeviceChangeDisputes)
	}
	if signals.VelocityViolation && signals.DailyTransactionCount > 20 {
		reasons = append(reasons, domain.ReasonSevereVelocity)
	}
	if signals.DailyTransactionCount > 25 {
		reasons = append(reasons, domain.ReasonExcessiveFrequency)
	}

	if signals.RiskScore == domain.RiskHigh && signals.RecentDisputes >= 3 {
		return domain.DecisionBlock, reasons
	}
	if signals.RiskScore == domain.RiskHigh && len(reasons) >= 2 {
		return domain.DecisionReview, reasons
	}
	if len(reasons) >= 3 {
		return domain.DecisionReview, reasons
	}
	return domain.DecisionAllow, reasons
}
