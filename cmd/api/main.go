package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DataCleaninghash/CustomerAII/internal/calls"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints"
	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
	"github.com/DataCleaninghash/CustomerAII/internal/email"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	apphttp "github.com/DataCleaninghash/CustomerAII/internal/http"
	"github.com/DataCleaninghash/CustomerAII/internal/http/router"
	"github.com/DataCleaninghash/CustomerAII/internal/notification"
	"github.com/DataCleaninghash/CustomerAII/internal/notification/outbox"
	"github.com/DataCleaninghash/CustomerAII/internal/scheduler"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/db"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
	"github.com/DataCleaninghash/CustomerAII/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		fatal(log, "failed to run database migrations", err)
	}
	log.Info("database migrations complete")

	pool := connectDB(ctx, cfg, log)
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		fatal(log, "failed to initialize email sender", err)
	}

	// Call execution runs on the worker; the API only enqueues. Without the
	// queue no complaint can reach a company, so a broken Redis URL is fatal.
	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		fatal(log, "failed to initialize call queue client", err)
	}
	defer func() { _ = queue.Close() }()

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	callsModule := calls.NewModule(pool, log)
	contactsModule := contacts.NewModule(pool, val, log)

	// Contact lookups go through the cache first; the static directory only
	// answers for companies seeded via CONTACT_SEED_FILE. Ops can override
	// any entry through the internal contacts endpoints.
	resolver := contacts.NewCachingResolver(
		contactsModule.Cache(),
		contacts.NewStaticResolver(loadContactSeed(log)),
		getDurationEnv("CONTACT_CACHE_TTL", contacts.DefaultCacheTTL),
		log,
	)

	complaintsModule, err := complaints.NewModule(pool, cfg, callsModule.Records(), queue, resolver, sender, eventBus, val, log)
	if err != nil {
		fatal(log, "failed to initialize complaints module", err)
	}
	complaintsModule.RegisterHandlers(eventBus)

	// Notification module subscribes to domain events (not HTTP-facing).
	// Customer mail goes through the durable outbox; the worker delivers it.
	notificationModule := notification.New(outbox.New(pool), sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			complaintsModule,
			callsModule,
			contactsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			fatal(log, "server error", err)
		}
	}
}

func fatal(log *logger.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	panic(msg + ": " + err.Error())
}

// connectDB retries until the pool answers a ping. Postgres routinely comes
// up seconds after the app under docker compose.
func connectDB(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		fatal(log, "failed to connect to database", err)
	}
	log.Info("database connection established")
	return pool
}

// loadContactSeed reads the development contact directory from the JSON file
// named by CONTACT_SEED_FILE. Without a seed the static resolver answers
// nothing and every uncached company needs an ops-created entry.
func loadContactSeed(log *logger.Logger) []contacts.Details {
	path := strings.TrimSpace(os.Getenv("CONTACT_SEED_FILE"))
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("contact seed file unreadable", "path", path, "error", err)
		return nil
	}

	var seed []contacts.Details
	if err := json.Unmarshal(data, &seed); err != nil {
		log.Warn("contact seed file invalid", "path", path, "error", err)
		return nil
	}

	log.Info("contact seed loaded", "path", path, "companies", len(seed))
	return seed
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", lastErr)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
