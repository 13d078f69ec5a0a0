package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/clickhouse"
	"hermes/internal/adapters/config"
	"hermes/internal/adapters/embeddings"
	"hermes/internal/adapters/errtrack/noop"
	"hermes/internal/adapters/errtrack/sentry"
	"hermes/internal/adapters/kafka"
	"hermes/internal/adapters/postgres"
	"hermes/internal/adapters/qdrant"
	"hermes/internal/adapters/redis"
	"hermes/internal/adapters/telegram"
	"hermes/internal/agents"
	"hermes/internal/api"
	"hermes/internal/api/health"
	telegramapi "hermes/internal/api/telegram"
	"hermes/internal/domain/product"
	"hermes/internal/domain/usage"
	"hermes/internal/events"
	"hermes/internal/metrics"
	chrepo "hermes/internal/repository/clickhouse"
	pgrepo "hermes/internal/repository/postgres"
	"hermes/internal/routing"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Initialize database connections
	db := initDatabases(cfg, log)
	defer db.Close(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize repositories
	archive := initArchive(ctx, db, log)
	producer := initProducer(cfg, log)
	publisher := events.NewPublisher(producer, cfg.Kafka.EscalationTopic, cfg.Kafka.UsageTopic)

	// Initialize AI providers and agents
	orch, settings, registry, tracker := initAssistant(cfg, db, archive, publisher, log)

	// Initialize Telegram bot
	bot, webhook := initTelegramBot(cfg, orch, log)

	// Initialize HTTP server
	server := initServer(cfg, db, orch, settings, registry, tracker, webhook, log)

	log.Info("System initialized successfully")

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	if bot != nil {
		go func() {
			handler := telegram.NewHandler(bot, orch)
			if err := bot.Start(ctx, handler); err != nil {
				log.Errorf("Telegram bot error: %v", err)
			}
		}()
	}

	// Wait for shutdown signal
	waitForShutdown(ctx, cancel, shutdownDeps{
		server:   server,
		archive:  archive,
		producer: producer,
		tracker:  errorTracker,
	}, log)
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// Database bundles the storage connections.
type Database struct {
	Postgres   *postgres.Client
	ClickHouse *clickhouse.Client
	Redis      *redis.Client
}

func (db *Database) Close(log *logger.Logger) {
	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			log.Warnf("Failed to close Redis: %v", err)
		}
	}
	if db.ClickHouse != nil {
		if err := db.ClickHouse.Close(); err != nil {
			log.Warnf("Failed to close ClickHouse: %v", err)
		}
	}
	if db.Postgres != nil {
		if err := db.Postgres.Close(); err != nil {
			log.Warnf("Failed to close PostgreSQL: %v", err)
		}
	}
}

// initDatabases initializes database connections (PostgreSQL, ClickHouse, Redis)
func initDatabases(cfg *config.Config, log *logger.Logger) *Database {
	log.Info("Initializing databases...")

	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	var chClient *clickhouse.Client
	if cfg.ClickHouse.Enabled {
		chClient, err = clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
	} else {
		log.Info("ClickHouse disabled, usage archive unavailable")
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	log.Info("Databases initialized")
	return &Database{
		Postgres:   pgClient,
		ClickHouse: chClient,
		Redis:      redisClient,
	}
}

// initArchive starts the ClickHouse usage repository when available.
func initArchive(ctx context.Context, db *Database, log *logger.Logger) *chrepo.UsageRepository {
	if db.ClickHouse == nil {
		return nil
	}

	archive := chrepo.NewUsageRepository(db.ClickHouse.Conn())
	archive.Start(ctx)
	log.Info("Usage archive started")
	return archive
}

// initProducer initializes the Kafka producer when enabled.
func initProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		log.Info("Kafka disabled, events will not be published")
		return nil
	}

	log.Infof("Kafka producer initialized (brokers: %v)", cfg.Kafka.Brokers)
	return kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
}

// initSearcher selects the vector-search backend.
func initSearcher(cfg *config.Config, db *Database, log *logger.Logger) product.Searcher {
	embedder, err := embeddings.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.Search.EmbeddingModel, cfg.Search.Timeout)
	if err != nil {
		log.Warnf("Embeddings unavailable, product search disabled: %v", err)
		return nil
	}

	switch cfg.Search.Backend {
	case "pgvector":
		log.Info("Product search backed by pgvector")
		return pgrepo.NewProductIndex(db.Postgres.DB(), embedder)
	default:
		log.Info("Product search backed by Qdrant")
		return qdrant.NewProductSearcher(qdrant.NewClient(cfg.Search), embedder)
	}
}

// initAssistant wires AI providers, agent nodes and the orchestrator.
func initAssistant(
	cfg *config.Config,
	db *Database,
	archive *chrepo.UsageRepository,
	publisher *events.Publisher,
	log *logger.Logger,
) (*agents.Orchestrator, *agents.Settings, *ai.ProviderRegistry, *agents.CostTracker) {
	log.Info("Initializing agents...")

	registry, err := ai.BuildRegistry(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to build AI provider registry: %v", err)
	}

	defaultProvider, err := registry.Get(cfg.AI.DefaultProvider)
	if err != nil {
		log.Fatalf("Default AI provider %q not available: %v", cfg.AI.DefaultProvider, err)
	}

	settings := agents.NewSettings(defaultProvider)

	var archiveRepo usage.Repository
	if archive != nil {
		archiveRepo = archive
	}

	tracker := agents.NewCostTracker(
		agents.NewRedisCostStore(db.Redis.Client()),
		archiveRepo,
		publisher,
		cfg.Costs,
	)
	guard := agents.NewCostGuard(tracker, cfg.Costs)

	searcher := initSearcher(cfg, db, log)
	nodes := agents.NewNodeRegistry(settings, registry, searcher, tracker, cfg.AI, cfg.Search)
	nodes.Preload(agents.AgentSalesAssistant, agents.AgentGeneralAssistant)

	orch, err := agents.NewOrchestrator(agents.OrchestratorDeps{
		Detector:  routing.NewDetector(),
		Nodes:     nodes,
		Settings:  settings,
		Tracker:   tracker,
		Guard:     guard,
		Chats:     pgrepo.NewChatRepository(db.Postgres.DB()),
		Archive:   archiveRepo,
		Publisher: publisher,
		Deadline:  cfg.Server.MessageDeadline,
	})
	if err != nil {
		log.Fatalf("Failed to build orchestrator: %v", err)
	}

	log.Info("Agents initialized")
	return orch, settings, registry, tracker
}

// initTelegramBot initializes the Telegram bot and its webhook handler.
func initTelegramBot(cfg *config.Config, orch *agents.Orchestrator, log *logger.Logger) (*telegram.Bot, *telegramapi.WebhookHandler) {
	if !cfg.Telegram.Enabled {
		log.Info("Telegram bot disabled")
		return nil, nil
	}

	webhookMode := cfg.Telegram.WebhookURL != ""

	bot, err := telegram.NewBot(telegram.Config{
		Token:       cfg.Telegram.BotToken,
		Debug:       cfg.App.Debug,
		WebhookMode: webhookMode,
	})
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	if !webhookMode {
		log.Info("Telegram bot initialized (polling)")
		return bot, nil
	}

	if err := bot.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
		log.Fatalf("Failed to set Telegram webhook: %v", err)
	}

	log.Info("Telegram bot initialized (webhook)")
	return bot, telegramapi.NewWebhookHandler(bot, telegram.NewHandler(bot, orch))
}

// initServer configures the HTTP server with all routes.
func initServer(
	cfg *config.Config,
	db *Database,
	orch *agents.Orchestrator,
	settings *agents.Settings,
	registry *ai.ProviderRegistry,
	tracker *agents.CostTracker,
	webhook *telegramapi.WebhookHandler,
	log *logger.Logger,
) *api.Server {
	healthHandler := health.New(db.Postgres.DB(), driverConn(db), db.Redis.Client(), cfg.App.Name, version)
	assistant := api.NewAssistantHandler(orch, settings, registry, tracker)

	return api.NewServer(api.ServerConfig{
		Port:            cfg.Server.Port,
		ServiceName:     cfg.App.Name,
		Version:         version,
		TelegramWebhook: webhook,
	}, healthHandler, assistant, log)
}

// driverConn unwraps the ClickHouse connection, which may be absent.
func driverConn(db *Database) driver.Conn {
	if db.ClickHouse == nil {
		return nil
	}
	return db.ClickHouse.Conn()
}

// shutdownDeps lists the components stopped on shutdown, in order.
type shutdownDeps struct {
	server   *api.Server
	archive  *chrepo.UsageRepository
	producer *kafka.Producer
	tracker  errors.Tracker
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, deps shutdownDeps, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}

	// Flush the buffered usage archive before connections close.
	if deps.archive != nil {
		if err := deps.archive.Stop(shutdownCtx); err != nil {
			log.Warnf("Failed to stop usage archive: %v", err)
		}
	}

	if deps.producer != nil {
		if err := deps.producer.Close(); err != nil {
			log.Warnf("Failed to close Kafka producer: %v", err)
		}
	}

	if deps.tracker != nil {
		if err := deps.tracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
