// Command paygated runs the payment decision service: an HTTP API in
// front of the admission gate, the tool orchestrator, the decision
// strategies, and the transaction ledger.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/paynow-labs/paygate/pkg/api"
	"github.com/paynow-labs/paygate/pkg/balance"
	"github.com/paynow-labs/paygate/pkg/config"
	"github.com/paynow-labs/paygate/pkg/events"
	"github.com/paynow-labs/paygate/pkg/ledger"
	"github.com/paynow-labs/paygate/pkg/observability"
	"github.com/paynow-labs/paygate/pkg/orchestrator"
	"github.com/paynow-labs/paygate/pkg/ratelimit"
	"github.com/paynow-labs/paygate/pkg/service"
	"github.com/paynow-labs/paygate/pkg/strategy"
	"github.com/paynow-labs/paygate/pkg/tools"

	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "paygated:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	log := observability.NewLogger(cfg.LogLevel)

	var profile *config.DecisionProfile
	if cfg.Profile != "" {
		var err error
		profile, err = config.LoadProfile(cfg.ProfilesDir, cfg.Profile)
		if err != nil {
			return err
		}
		profile.Apply(cfg)
		log.Info("decision profile loaded", "profile", profile.Code)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := observability.New(ctx, &observability.Config{
		ServiceName:    "paygate",
		ServiceVersion: "1.0.0",
		Environment:    envName(),
		OTLPEndpoint:   cfg.MetricsEndpoint,
		Insecure:       true,
		ExportInterval: 15 * time.Second,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}()

	store, closeDB, err := openLedger(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeDB()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	policy := ratelimit.Policy{Capacity: cfg.RateLimitCapacity, RefillPerSec: cfg.RateLimitRefill}
	var limiter ratelimit.Store
	if redisClient != nil {
		limiter = ratelimit.NewRedisStore(redisClient, policy)
		log.Info("admission gate backed by redis", "addr", cfg.RedisAddr)
	} else {
		limiter = ratelimit.NewMemoryStore(policy)
	}
	gate := ratelimit.NewGate(limiter)

	balances := balance.NewManager(log)
	seedBalances(profile, balances, log)

	registry := strategy.NewRegistry()
	orch := orchestrator.New(
		tools.NewBalanceLookup(balances, log),
		tools.NewRiskLookup(log),
		tools.NewCaseCreator(log),
		registry,
		orchestrator.Config{
			MaxRetries:  cfg.MaxRetries,
			BackoffStep: cfg.BackoffStep,
			Timeout:     cfg.ToolTimeout,
			PoolSize:    cfg.ToolPoolSize,
		},
		log,
	)

	var sink events.Sink
	if redisClient != nil {
		sink = events.NewRedisStreamSink(redisClient)
	} else {
		sink = events.NewAuditLogSink(log)
	}
	publisher := events.NewPublisher(sink, log)
	defer publisher.Close()

	svc := service.New(store, orch, balances, gate, publisher, log)
	server := api.NewServer(svc, registry, api.NewKeyStore(cfg.APIKeys), metrics, log)

	mux := http.NewServeMux()
	server.Routes(mux)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func envName() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}

// openLedger connects to Postgres when the URL says so, otherwise to an
// embedded sqlite database, and ensures the schema exists.
func openLedger(ctx context.Context, databaseURL string) (*ledger.SQLStore, func(), error) {
	driver := "sqlite"
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		driver = "postgres"
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	store := ledger.NewSQLStore(db)
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init schema: %w", err)
	}
	return store, func() { db.Close() }, nil
}

func seedBalances(profile *config.DecisionProfile, balances *balance.Manager, log *slog.Logger) {
	if profile == nil {
		return
	}
	for _, seed := range profile.SeedBalances {
		amount, err := decimal.NewFromString(seed.Balance)
		if err != nil {
			log.Warn("skipping malformed seed balance",
				"customer_id", seed.CustomerID,
				"balance", seed.Balance)
			continue
		}
		balances.SetBalance(seed.CustomerID, amount)
	}
}
