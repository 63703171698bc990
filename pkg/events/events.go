// Package events delivers decision events to downstream consumers. The
// publisher keeps an unbounded in-process queue drained by a single
// consumer goroutine: enqueueing never blocks the decision path, delivery
// is at-least-once and best-effort. A slow sink grows the queue without
// bound; that trade-off is deliberate for this service.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/domain"
)

// DecisionEvent is the payload emitted after every persisted decision.
type DecisionEvent struct {
	EventID        string          `json:"event_id"`
	CustomerID     string          `json:"customer_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PayeeID        string          `json:"payee_id"`
	Decision       domain.Decision `json:"decision"`
	Reasons        []string        `json:"reasons"`
	RequestID      string          `json:"request_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Sink receives events from the publisher's consumer goroutine.
type Sink interface {
	Publish(ctx context.Context, event DecisionEvent) error
}

// Publisher queues events for asynchronous delivery to a sink.
type Publisher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []DecisionEvent
	closed bool
	done   chan struct{}

	sink Sink
	log  *slog.Logger
}

// NewPublisher starts the consumer goroutine draining into sink.
func NewPublisher(sink Sink, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		sink: sink,
		log:  log,
		done: make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.drain()
	return p
}

// Publish enqueues the event and returns immediately. Events published
// after Close are dropped.
func (p *Publisher) Publish(event DecisionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.log.Warn("event dropped, publisher closed", "event_id", event.EventID)
		return
	}
	p.queue = append(p.queue, event)
	p.cond.Signal()
}

// QueueSize reports the number of undelivered events.
func (p *Publisher) QueueSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops the consumer after the queue drains.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Signal()
	p.mu.Unlock()
	<-p.done
}

func (p *Publisher) drain() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		event := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if err := p.sink.Publish(context.Background(), event); err != nil {
			// Best-effort delivery: log and move on.
			p.log.Error("event delivery failed", "event_id", event.EventID, "error", err)
		}
	}
}
