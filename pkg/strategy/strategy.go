// Package strategy holds the named risk-decision policies. Strategies are
// pure: given the same request, balance, and signals they always produce
// the same decision and append the same reasons in the same order.
package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/domain"
)

// Strategy is a swappable decision policy selected by name.
type Strategy interface {
	Name() string
	Description() string

	// Decide evaluates the request against the available balance and risk
	// signals. Reason codes discovered along the way are appended to reasons
	// and the extended slice is returned alongside the verdict.
	Decide(req domain.PaymentRequest, available decimal.Decimal, signals domain.RiskSignals, reasons []string) (domain.Decision, []string)
}
