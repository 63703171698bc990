// Package domain holds the payment decision types shared across the gate:
// requests, risk signals, decisions, and the orchestration trace.
package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Decision is the outcome of a payment decision.
type Decision string

const (
	DecisionAllow  Decision = "ALLOW"
	DecisionReview Decision = "REVIEW"
	DecisionBlock  Decision = "BLOCK"
)

// RiskScore buckets the customer's current risk level.
type RiskScore string

const (
	RiskLow    RiskScore = "LOW"
	RiskMedium RiskScore = "MEDIUM"
	RiskHigh   RiskScore = "HIGH"
)

// Reason codes appended by strategies and the service layer.
// Order of appearance in DecisionResult.Reasons is discovery order.
const (
	ReasonInsufficientBalance    = "insufficient_balance"
	ReasonInsufficientFunds      = "insufficient_funds"
	ReasonSystemError            = "system_error"
	ReasonAmountAboveDaily       = "amount_above_daily_threshold"
	ReasonRecentDisputes         = "recent_disputes"
	ReasonDeviceChange           = "device_change_detected"
	ReasonVelocityViolation      = "velocity_violation"
	ReasonHighFrequency          = "high_transaction_frequency"
	ReasonAmountAboveConserv     = "amount_above_conservative_threshold"
	ReasonAmountAboveAggressive  = "amount_above_aggressive_threshold"
	ReasonMultipleDisputes       = "multiple_recent_disputes"
	ReasonDeviceChangeDisputes   = "device_change_with_disputes"
	ReasonSevereVelocity         = "severe_velocity_violation"
	ReasonExcessiveFrequency     = "excessive_transaction_frequency"
)

// PaymentRequest is the immutable inbound payment to decide on.
// IdempotencyKey is caller-supplied and globally unique per logical payment.
type PaymentRequest struct {
	CustomerID     string          `json:"customer_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PayeeID        string          `json:"payee_id"`
	IdempotencyKey string          `json:"idempotency_key"`
}

var (
	errMissingCustomer = errors.New("customer_id is required")
	errMissingPayee    = errors.New("payee_id is required")
)

// Validate applies the boundary checks the transport layer relies on.
// The core assumes requests passed to it are already well-formed.
func (r PaymentRequest) Validate() error {
	if r.CustomerID == "" {
		return errMissingCustomer
	}
	if r.PayeeID == "" {
		return errMissingPayee
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", r.Amount)
	}
	if len(r.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code, got %q", r.Currency)
	}
	if l := len(r.IdempotencyKey); l < 10 || l > 100 {
		return fmt.Errorf("idempotency_key must be 10-100 characters, got %d", l)
	}
	return nil
}

// RiskSignals are produced fresh per request and never persisted on their own.
type RiskSignals struct {
	RecentDisputes        int       `json:"recent_disputes"`
	DeviceChange          bool      `json:"device_change"`
	VelocityViolation     bool      `json:"velocity_violation"`
	DailyTransactionCount int       `json:"daily_transaction_count"`
	RiskScore             RiskScore `json:"risk_score"`
}

// TraceStep is one entry in the ordered audit trail of orchestration actions.
type TraceStep struct {
	Step   string `json:"step"`
	Detail string `json:"detail"`
}

// DecisionResult is the full outcome of a decision run: the verdict, the
// reason codes in discovery order, and the execution trace.
type DecisionResult struct {
	Decision Decision    `json:"decision"`
	Reasons  []string    `json:"reasons"`
	Trace    []TraceStep `json:"agent_trace"`
}

// CaseRequest asks the case-management collaborator to open a review case.
type CaseRequest struct {
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	PayeeID    string          `json:"payee_id"`
	Reason     string          `json:"reason"`
	Priority   string          `json:"priority"`
}

// CaseResult is the collaborator's acknowledgement of an opened case.
type CaseResult struct {
	CaseID     string `json:"case_id"`
	Status     string `json:"status"`
	AssignedTo string `json:"assigned_to"`
}
