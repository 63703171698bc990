package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/paynow-labs/paygate/pkg/domain"
	"github.com/paynow-labs/paygate/pkg/observability"
	"github.com/paynow-labs/paygate/pkg/service"
	"github.com/paynow-labs/paygate/pkg/strategy"
)

// Server exposes the decision service over HTTP.
type Server struct {
	svc        *service.Service
	strategies *strategy.Registry
	keys       *KeyStore
	metrics    *observability.Provider
	log        *slog.Logger
}

// NewServer wires the HTTP layer. metrics may be an inert provider.
func NewServer(svc *service.Service, strategies *strategy.Registry, keys *KeyStore, metrics *observability.Provider, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, strategies: strategies, keys: keys, metrics: metrics, log: log}
}

// Routes registers all endpoints on the mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.Handle("/api/v1/payments/decide", s.keys.RequireAPIKey(http.HandlerFunc(s.HandleDecide)))
	mux.Handle("/api/v1/strategies", s.keys.RequireAPIKey(http.HandlerFunc(s.HandleStrategies)))
	mux.HandleFunc("/healthz", s.HandleHealth)
}

// decideRequest is the wire form of a decision request. The strategy field
// is optional; the "strategy" query parameter takes precedence over it.
type decideRequest struct {
	domain.PaymentRequest
	Strategy string `json:"strategy,omitempty"`
}

// HandleDecide handles POST /api/v1/payments/decide.
func (s *Server) HandleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := req.PaymentRequest.Validate(); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	strategyName := r.URL.Query().Get("strategy")
	if strategyName == "" {
		strategyName = req.Strategy
	}
	if strategyName == "" {
		strategyName = "default"
	}

	if adm := s.svc.CheckAdmission(r.Context(), req.CustomerID); !adm.Allowed {
		WriteTooManyRequests(w, int(adm.RetryAfter.Seconds()))
		return
	}

	done := s.metrics.TrackRequest(r.Context(), attribute.String("strategy", strategyName))
	resp := s.svc.DecidePaymentWithStrategy(r.Context(), req.PaymentRequest, strategyName)
	done(nil)
	s.metrics.RecordDecision(r.Context(), string(resp.Decision))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", resp.RequestID)
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleStrategies handles GET /api/v1/strategies.
func (s *Server) HandleStrategies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"strategies": s.strategies.Available(),
		"default":    s.strategies.Default().Name(),
	})
}

// HandleHealth handles GET /healthz. It is deliberately unauthenticated.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
