package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"hermes/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	AI            AIConfig
	Search        SearchConfig
	Costs         CostConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"hermes"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Port            int           `envconfig:"HTTP_PORT" default:"8080"`
	MessageDeadline time.Duration `envconfig:"MESSAGE_DEADLINE" default:"45s"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"assistant"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled         bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers         []string `envconfig:"KAFKA_BROKERS"`
	EscalationTopic string   `envconfig:"KAFKA_ESCALATION_TOPIC" default:"assistant.escalations"`
	UsageTopic      string   `envconfig:"KAFKA_USAGE_TOPIC" default:"assistant.usage"`
}

type TelegramConfig struct {
	Enabled    bool   `envconfig:"TELEGRAM_ENABLED" default:"false"`
	BotToken   string `envconfig:"TELEGRAM_BOT_TOKEN"`
	WebhookURL string `envconfig:"TELEGRAM_WEBHOOK_URL"`
}

type AIConfig struct {
	GeminiKey       string `envconfig:"GEMINI_API_KEY"`
	OpenAIKey       string `envconfig:"OPENAI_API_KEY"`
	DefaultProvider string `envconfig:"DEFAULT_AI_PROVIDER" default:"gemini"`

	RequestTimeout time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"30s"`
	RetryAttempts  int           `envconfig:"AI_RETRY_ATTEMPTS" default:"3"`
	RetryBackoff   time.Duration `envconfig:"AI_RETRY_BACKOFF" default:"500ms"`

	RateLimitEnabled bool    `envconfig:"AI_RATE_LIMIT_ENABLED" default:"true"`
	ReqPerMinute     float64 `envconfig:"AI_REQ_PER_MINUTE" default:"300"`
	Burst            int     `envconfig:"AI_RATE_LIMIT_BURST" default:"30"`
}

type SearchConfig struct {
	// Backend selects the vector-search implementation: "qdrant" or "pgvector".
	Backend        string        `envconfig:"SEARCH_BACKEND" default:"qdrant"`
	QdrantURL      string        `envconfig:"QDRANT_URL" default:"http://localhost:6333"`
	Collection     string        `envconfig:"QDRANT_COLLECTION" default:"products_kb"`
	Timeout        time.Duration `envconfig:"SEARCH_TIMEOUT" default:"10s"`
	Limit          int           `envconfig:"SEARCH_LIMIT" default:"5"`
	ScoreThreshold float64       `envconfig:"SEARCH_SCORE_THRESHOLD" default:"0.3"`
	EmbeddingModel string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
}

type CostConfig struct {
	TrackingEnabled bool    `envconfig:"COST_TRACKING_ENABLED" default:"true"`
	DailyLimitUSD   float64 `envconfig:"DAILY_COST_LIMIT" default:"50.0"`
	MonthlyLimitUSD float64 `envconfig:"MONTHLY_COST_LIMIT" default:"1000.0"`

	// Policy controls what happens when a limit is exceeded:
	// "advisory" surfaces a warning flag, "enforce" blocks paid agent calls.
	Policy string `envconfig:"COST_LIMIT_POLICY" default:"advisory"`

	BucketTTL time.Duration `envconfig:"COST_BUCKET_TTL" default:"720h"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
