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

	"github.com/DataCleaninghash/CustomerAII/internal/adapters/storage"
	"github.com/DataCleaninghash/CustomerAII/internal/calls"
	callsrepo "github.com/DataCleaninghash/CustomerAII/internal/calls/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/agent"
	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
	"github.com/DataCleaninghash/CustomerAII/internal/email"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/internal/notification"
	"github.com/DataCleaninghash/CustomerAII/internal/notification/outbox"
	"github.com/DataCleaninghash/CustomerAII/internal/scheduler"
	"github.com/DataCleaninghash/CustomerAII/internal/telephony"
	"github.com/DataCleaninghash/CustomerAII/platform/ai/moonshot"
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
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := connectDB(ctx, cfg, log)
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		fatal(log, "failed to initialize email sender", err)
	}

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		fatal(log, "failed to initialize call queue client", err)
	}
	defer func() { _ = queue.Close() }()

	val := validator.New()

	// ========================================================================
	// Call execution pipeline
	// ========================================================================

	callRecords := callsrepo.NewRepository(pool)

	resolver := contacts.NewCachingResolver(
		contacts.NewRepository(pool),
		contacts.NewStaticResolver(loadContactSeed(log)),
		getDurationEnv("CONTACT_CACHE_TTL", contacts.DefaultCacheTTL),
		log,
	)

	// The complaints module is wired here for its repository and its event
	// handlers: resolution, escalation and fallback events published by the
	// executor land on this process's bus, and the module turns them into
	// timeline entries.
	complaintsModule, err := complaints.NewModule(pool, cfg, callRecords, queue, resolver, sender, eventBus, val, log)
	if err != nil {
		fatal(log, "failed to initialize complaints module", err)
	}
	complaintsModule.RegisterHandlers(eventBus)
	complaintsRepo := complaintsModule.Repository()

	// Customer notifications triggered by call outcomes are composed here and
	// queued on the outbox; the dispatcher below feeds them back as tasks.
	notificationModule := notification.New(outbox.New(pool), sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	if !cfg.IsTelephonyEnabled() {
		log.Warn("telephony provider not configured; queued calls will fail until TELEPHONY_BASE_URL is set")
	}
	provider := telephony.NewClient(cfg, log)

	extractor := agent.NewExtractor(moonshot.NewModel(moonshot.Config{
		APIKey: cfg.GetMoonshotAPIKey(),
		Model:  cfg.GetMoonshotModel(),
	}))

	navigator := calls.NewNavigator(provider, log)
	coordinator := calls.NewCoordinator(provider, extractor, callRecords, eventBus, cfg, log)
	machine := calls.NewStateMachine(provider, navigator, coordinator, complaintsRepo, cfg, log)

	var archiver calls.TranscriptArchiver
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewService(cfg)
		if err != nil {
			fatal(log, "failed to initialize storage service", err)
		}
		bucket := cfg.GetMinioBucketCallTranscripts()
		if err := withRetry(ctx, log, "ensure transcript bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			fatal(log, "failed to ensure transcript bucket exists", err)
		}
		archiver = storage.NewTranscriptArchive(storageSvc, bucket, log)
		log.Info("transcript archive initialized", "bucket", bucket)
	} else {
		log.Warn("MinIO not configured; transcripts stay in postgres only")
	}

	executor := calls.NewExecutor(machine, complaintsRepo, callRecords, resolver, extractor, archiver, eventBus, log)

	// ========================================================================
	// Task consumption
	// ========================================================================

	dispatcher, err := scheduler.NewOutboxDispatcher(cfg, pool, log)
	if err != nil {
		fatal(log, "failed to initialize outbox dispatcher", err)
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, executor, eventBus, log)
	if err != nil {
		fatal(log, "failed to initialize scheduler worker", err)
	}

	worker.Run(ctx)
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
// named by CONTACT_SEED_FILE. The worker resolves contacts independently, so
// it needs the same seed the API was started with.
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
