// Package orchestrator runs the decision flow for a single payment: fan out
// the balance and risk lookups on a bounded worker pool, join with a global
// timeout, fold the results through the selected strategy, and open a review
// case when the verdict calls for one. Decide never returns an error; every
// failure inside the flow collapses to a BLOCK decision carrying
// system_error, so callers always receive a well-formed result.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/domain"
	"github.com/paynow-labs/paygate/pkg/strategy"
	"github.com/paynow-labs/paygate/pkg/util"
)

// BalanceLookup is the balance evaluation collaborator.
type BalanceLookup interface {
	GetAvailableBalance(ctx context.Context, customerID string) (decimal.Decimal, error)
}

// RiskLookup is the risk-signal evaluation collaborator.
type RiskLookup interface {
	GetRiskSignals(ctx context.Context, customerID string) (domain.RiskSignals, error)
}

// CaseCreator opens review cases for REVIEW and BLOCK verdicts.
type CaseCreator interface {
	CreateCase(ctx context.Context, req domain.CaseRequest) (domain.CaseResult, error)
}

// Config holds the orchestration tunables.
type Config struct {
	MaxRetries  int           // retries per tool after the first attempt
	BackoffStep time.Duration // linear backoff unit between attempts
	Timeout     time.Duration // global bound on the balance+risk join
	PoolSize    int           // worker pool for tool execution
}

// DefaultConfig mirrors the service defaults: 2 retries at 100ms linear
// backoff, a 30s join timeout, and a pool of 2x available cores.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  2,
		BackoffStep: 100 * time.Millisecond,
		Timeout:     30 * time.Second,
		PoolSize:    2 * runtime.NumCPU(),
	}
}

// Orchestrator coordinates evaluation tools and strategies for one decision.
type Orchestrator struct {
	balances BalanceLookup
	risks    RiskLookup
	cases    CaseCreator
	registry *strategy.Registry
	cfg      Config
	pool     chan struct{}
	log      *slog.Logger
}

// New builds an orchestrator over the given collaborators.
func New(balances BalanceLookup, risks RiskLookup, cases CaseCreator, registry *strategy.Registry, cfg Config, log *slog.Logger) *Orchestrator {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultConfig().PoolSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		balances: balances,
		risks:    risks,
		cases:    cases,
		registry: registry,
		cfg:      cfg,
		pool:     make(chan struct{}, cfg.PoolSize),
		log:      log,
	}
}

func (o *Orchestrator) retryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: o.cfg.MaxRetries, BackoffStep: o.cfg.BackoffStep}
}

type result[T any] struct {
	val T
	err error
}

// launch schedules fn on the worker pool and returns the channel carrying
// its retried outcome. If the context expires before a pool slot frees up,
// the tool is never invoked and the context error is reported instead.
func launch[T any](ctx context.Context, o *Orchestrator, name string, fn func(context.Context) (T, error)) <-chan result[T] {
	ch := make(chan result[T], 1)
	go func() {
		select {
		case o.pool <- struct{}{}:
			defer func() { <-o.pool }()
		case <-ctx.Done():
			ch <- result[T]{err: ctx.Err()}
			return
		}
		v, err := executeWithRetry(ctx, o.retryPolicy(), o.log, name, fn)
		ch <- result[T]{val: v, err: err}
	}()
	return ch
}

// Decide runs the full decision flow for the request using the named
// strategy (unknown names fall back to "default"). It never returns an
// error: tool failures and timeouts yield BLOCK with reason system_error.
func (o *Orchestrator) Decide(ctx context.Context, req domain.PaymentRequest, strategyName string) domain.DecisionResult {
	trace := []domain.TraceStep{{Step: "plan", Detail: "Check balance, risk, and limits"}}
	reasons := []string{}

	o.log.Info("processing payment decision",
		"customer_id", util.MaskCustomerID(req.CustomerID),
		"strategy", strategyName)

	toolCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	balCh := launch(toolCtx, o, "getBalance", func(ctx context.Context) (decimal.Decimal, error) {
		return o.balances.GetAvailableBalance(ctx, req.CustomerID)
	})
	riskCh := launch(toolCtx, o, "getRiskSignals", func(ctx context.Context) (domain.RiskSignals, error) {
		return o.risks.GetRiskSignals(ctx, req.CustomerID)
	})

	var available decimal.Decimal
	var signals domain.RiskSignals
	for pending := 2; pending > 0; pending-- {
		select {
		case r := <-balCh:
			if r.err != nil {
				return o.abandon(req, trace, reasons, r.err)
			}
			available = r.val
		case r := <-riskCh:
			if r.err != nil {
				return o.abandon(req, trace, reasons, r.err)
			}
			signals = r.val
		case <-toolCtx.Done():
			return o.abandon(req, trace, reasons, toolCtx.Err())
		}
	}

	trace = append(trace, domain.TraceStep{
		Step:   "tool:getBalance",
		Detail: "balance=" + available.String(),
	})
	trace = append(trace, domain.TraceStep{
		Step: "tool:getRiskSignals",
		Detail: fmt.Sprintf("recent_disputes=%d, device_change=%t, velocity_violation=%t, risk_score=%s",
			signals.RecentDisputes, signals.DeviceChange, signals.VelocityViolation, signals.RiskScore),
	})

	strat := o.registry.Get(strategyName)
	trace = append(trace, domain.TraceStep{
		Step:   "strategy",
		Detail: "Using decision strategy: " + strat.Name(),
	})

	decision, reasons := strat.Decide(req, available, signals, reasons)

	if decision == domain.DecisionReview || decision == domain.DecisionBlock {
		trace = append(trace, o.openCase(ctx, req, signals, reasons))
	}

	trace = append(trace, domain.TraceStep{
		Step:   "tool:recommend",
		Detail: "route to " + strings.ToLower(string(decision)),
	})

	return domain.DecisionResult{Decision: decision, Reasons: reasons, Trace: trace}
}

// abandon converts a tool failure or timeout into the fail-closed BLOCK
// outcome. No further orchestration steps run after it.
func (o *Orchestrator) abandon(req domain.PaymentRequest, trace []domain.TraceStep, reasons []string, err error) domain.DecisionResult {
	o.log.Error("decision processing failed",
		"idempotency_key", req.IdempotencyKey,
		"error", err)
	trace = append(trace, domain.TraceStep{Step: "error", Detail: "Processing failed: " + err.Error()})
	reasons = append(reasons, domain.ReasonSystemError)
	return domain.DecisionResult{Decision: domain.DecisionBlock, Reasons: reasons, Trace: trace}
}

// openCase asks the case-management collaborator for a review case, with
// the same retry policy as the evaluation tools but an independent timeout.
// Case creation is best-effort: failure is recorded in the trace and the
// decision stands.
func (o *Orchestrator) openCase(ctx context.Context, req domain.PaymentRequest, signals domain.RiskSignals, reasons []string) domain.TraceStep {
	priority := "MEDIUM"
	if signals.RiskScore == domain.RiskHigh {
		priority = "HIGH"
	}
	caseReq := domain.CaseRequest{
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		PayeeID:    req.PayeeID,
		Reason:     strings.Join(reasons, ", "),
		Priority:   priority,
	}

	caseCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	caseCh := launch(caseCtx, o, "createCase", func(ctx context.Context) (domain.CaseResult, error) {
		return o.cases.CreateCase(ctx, caseReq)
	})

	select {
	case r := <-caseCh:
		if r.err != nil {
			o.log.Error("case creation failed, continuing without case",
				"customer_id", util.MaskCustomerID(req.CustomerID),
				"error", r.err)
			return domain.TraceStep{Step: "tool:createCase", Detail: "case creation failed: " + r.err.Error()}
		}
		return domain.TraceStep{
			Step: "tool:createCase",
			Detail: fmt.Sprintf("case_id=%s, status=%s, assigned_to=%s",
				r.val.CaseID, r.val.Status, r.val.AssignedTo),
		}
	case <-caseCtx.Done():
		o.log.Error("case creation timed out, continuing without case",
			"customer_id", util.MaskCustomerID(req.CustomerID))
		return domain.TraceStep{Step: "tool:createCase", Detail: "case creation failed: " + caseCtx.Err().Error()}
	}
}
