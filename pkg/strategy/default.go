package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/domain"
)

var defaultAmountThreshold = decimal.NewFromInt(100)

// DefaultStrategy is the balanced policy applied when no strategy is named.
type DefaultStrategy struct{}

func (DefaultStrategy) Name() string { return "default" }

func (DefaultStrategy) Description() string {
	return "Standard decision algorithm with balanced risk assessment"
}

func (DefaultStrategy) Decide(req domain.PaymentRequest, available decimal.Decimal, signals domain.RiskSignals, reasons []string) (domain.Decision, []string) {
	if available.LessThan(req.Amount) {
		reasons = append(reasons, domain.ReasonInsufficientBalance)
		return domain.DecisionBlock, reasons
	}

	if req.Amount.GreaterThan(defaultAmountThreshold) {
		reasons = append(reasons, domain.ReasonAmountAboveDaily)
	}
	if signals.RecentDisputes > 0 {
		reasons = append(reasons, domain.ReasonRecentDisputes)
	}
	if signals.DeviceChange {
		reasons = append(reasons, domain.ReasonDeviceChange)
	}
	if signals.VelocityViolation {
		reasons = append(reasons, domain.ReasonVelocityViolation)
	}
	if signals.DailyTransactionCount > 15 {
		reasons = append(reasons, domain.ReasonHighFrequency)
	}

	if signals.RiskScore == domain.RiskHigh || signals.RecentDisputes >= 2 {
		return domain.DecisionBlock, reasons
	}
	if signals.RiskScore == domain.RiskMedium || len(reasons) >= 2 {
		return domain.DecisionReview, reasons
	}
	if len(reasons) == 1 {
		return domain.DecisionReview, reasons
	}
	return domain.DecisionAllow, reasons
}
