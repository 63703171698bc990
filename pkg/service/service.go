// Package service exposes the two core entry points: CheckAdmission and
// DecidePayment. It owns the idempotency replay path, the reserve-on-ALLOW
// step, transaction persistence, and event emission. Callers only ever see
// a well-formed response or an explicit admission rejection; every internal
// failure collapses to BLOCK with reason system_error.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/domain"
	"github.com/paynow-labs/paygate/pkg/events"
	"github.com/paynow-labs/paygate/pkg/ledger"
	"github.com/paynow-labs/paygate/pkg/ratelimit"
	"github.com/paynow-labs/paygate/pkg/util"
)

// DecisionProcessor runs the orchestration flow for one request.
type DecisionProcessor interface {
	Decide(ctx context.Context, req domain.PaymentRequest, strategyName string) domain.DecisionResult
}

// Reserver places and releases holds against customer balances.
type Reserver interface {
	Reserve(customerID string, amount decimal.Decimal) bool
	Release(customerID string, amount decimal.Decimal)
}

// EventPublisher accepts decision events for downstream delivery.
type EventPublisher interface {
	Publish(event events.DecisionEvent)
}

// Response is the decision outcome returned to the transport layer.
type Response struct {
	domain.DecisionResult
	RequestID string `json:"request_id"`
}

// Service coordinates one payment decision end to end.
type Service struct {
	store     ledger.Store
	processor DecisionProcessor
	balances  Reserver
	gate      *ratelimit.Gate
	publisher EventPublisher
	log       *slog.Logger
	now       func() time.Time
}

// New wires the service. publisher may be nil when event emission is
// disabled.
func New(store ledger.Store, processor DecisionProcessor, balances Reserver, gate *ratelimit.Gate, publisher EventPublisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:     store,
		processor: processor,
		balances:  balances,
		gate:      gate,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// CheckAdmission consults the rate limiter for the customer. It is called
// before DecidePayment; a rejection carries the retry-after hint.
func (s *Service) CheckAdmission(ctx context.Context, customerID string) ratelimit.Admission {
	adm, err := s.gate.Check(ctx, customerID)
	if err != nil {
		s.log.Error("admission check failed",
			"customer_id", util.MaskCustomerID(customerID),
			"error", err)
	}
	if !adm.Allowed {
		s.log.Warn("rate limit exceeded",
			"customer_id", util.MaskCustomerID(customerID))
	}
	return adm
}

// DecidePayment produces the decision for the request, replaying the stored
// outcome when the idempotency key has been seen before.
func (s *Service) DecidePayment(ctx context.Context, req domain.PaymentRequest) Response {
	return s.DecidePaymentWithStrategy(ctx, req, "default")
}

// DecidePaymentWithStrategy is DecidePayment with an explicit strategy
// name. Unknown names fall back to the default strategy downstream.
func (s *Service) DecidePaymentWithStrategy(ctx context.Context, req domain.PaymentRequest, strategyName string) Response {
	requestID := domain.NewRequestID()
	log := s.log.With(
		"request_id", requestID,
		"customer_id", util.MaskCustomerID(req.CustomerID))

	log.Info("processing payment decision",
		"amount", req.Amount.String(),
		"currency", req.Currency)

	existing, err := s.store.FindByIdempotencyKey(ctx, req.IdempotencyKey)
	switch {
	case err == nil:
		log.Info("returning cached decision", "idempotency_key", req.IdempotencyKey)
		return s.replay(existing)
	case errors.Is(err, ledger.ErrNotFound):
		// First time we see this key.
	default:
		log.Error("ledger lookup failed", "error", err)
		return errorResponse(requestID)
	}

	result := s.processor.Decide(ctx, req, strategyName)

	reserved := false
	if result.Decision == domain.DecisionAllow {
		if s.balances.Reserve(req.CustomerID, req.Amount) {
			reserved = true
		} else {
			log.Warn("reservation failed, downgrading decision to BLOCK")
			result = domain.DecisionResult{
				Decision: domain.DecisionBlock,
				Reasons:  []string{domain.ReasonInsufficientFunds},
				Trace:    result.Trace,
			}
		}
	}

	txn := ledger.NewTransaction(req, result, requestID, s.now().UTC())
	if err := s.store.Save(ctx, txn); err != nil {
		if reserved {
			// The persisted outcome governs; undo our side effect.
			s.balances.Release(req.CustomerID, req.Amount)
		}
		if errors.Is(err, ledger.ErrDuplicateKey) {
			// Lost the race against a concurrent request with the same key:
			// the winner's row is the single processing outcome.
			log.Info("idempotency race lost, replaying winner",
				"idempotency_key", req.IdempotencyKey)
			winner, findErr := s.store.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if findErr != nil {
				log.Error("failed to load winning transaction", "error", findErr)
				return errorResponse(requestID)
			}
			return s.replay(winner)
		}
		log.Error("failed to persist transaction", "error", err)
		return errorResponse(requestID)
	}

	log.Info("payment decision completed",
		"decision", result.Decision,
		"reasons", len(result.Reasons))

	s.publishEvent(req, result, requestID)

	return Response{DecisionResult: result, RequestID: requestID}
}

// replay rebuilds the response from a stored transaction. Corrupt stored
// state fails closed: BLOCK with system_error, never a corrupted ALLOW.
func (s *Service) replay(txn ledger.Transaction) Response {
	result, err := txn.DecodeResult()
	if err != nil {
		s.log.Error("failed to deserialize stored decision",
			"idempotency_key", txn.IdempotencyKey,
			"error", err)
		return errorResponse(txn.RequestID)
	}
	return Response{DecisionResult: result, RequestID: txn.RequestID}
}

func (s *Service) publishEvent(req domain.PaymentRequest, result domain.DecisionResult, requestID string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.DecisionEvent{
		EventID:        domain.NewEventID(),
		CustomerID:     req.CustomerID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PayeeID:        req.PayeeID,
		Decision:       result.Decision,
		Reasons:        result.Reasons,
		RequestID:      requestID,
		IdempotencyKey: req.IdempotencyKey,
		Timestamp:      s.now().UTC(),
	})
}

func errorResponse(requestID string) Response {
	return Response{
		DecisionResult: domain.DecisionResult{
			Decision: domain.DecisionBlock,
			Reasons:  []string{domain.ReasonSystemError},
			Trace:    []domain.TraceStep{{Step: "error", Detail: "System error occurred"}},
		},
		RequestID: requestID,
	}
}
