// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8000"`

	GeminiAPIKey        string        `env:"GEMINI_API_KEY"`
	GeminiBaseURL       string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiPrimaryModel  string        `env:"GEMINI_PRIMARY_MODEL" envDefault:"gemini-2.0-flash"`
	GeminiFallbackModel string        `env:"GEMINI_FALLBACK_MODEL" envDefault:"gemini-1.5-flash"`
	EmbeddingsModel     string        `env:"EMBEDDINGS_MODEL" envDefault:"text-embedding-004"`
	AICallTimeout       time.Duration `env:"AI_CALL_TIMEOUT" envDefault:"30s"`
	EmbedCacheSize      int           `env:"EMBED_CACHE_SIZE" envDefault:"512"`

	// Upstream account budget. Values <= 0 disable the respective limit.
	AIQuotaRPM          int           `env:"AI_QUOTA_RPM" envDefault:"15"`
	AIQuotaRPD          int           `env:"AI_QUOTA_RPD" envDefault:"1500"`
	AIQuotaSafetyMargin time.Duration `env:"AI_QUOTA_SAFETY_MARGIN" envDefault:"500ms"`

	ModerationRiskThreshold float64 `env:"MODERATION_RISK_THRESHOLD" envDefault:"0.5"`
	ModerationCacheSize     int     `env:"MODERATION_CACHE_SIZE" envDefault:"1000"`
	ModerationMinLength     int     `env:"MODERATION_MIN_LENGTH" envDefault:"2"`
	ModerationMaxChars      int     `env:"MODERATION_MAX_CHARS" envDefault:"2000"`
	// ModerationRulesPath points at a YAML rule file; empty uses the built-in rules.
	ModerationRulesPath string `env:"MODERATION_RULES_PATH"`

	MatchMaxChars int `env:"MATCH_MAX_CHARS" envDefault:"4000"`

	CORSAllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173,https://noeyos.store"`
	BackendBaseURL   string `env:"BACKEND_BASE_URL" envDefault:"http://backend:8080"`

	NaverClientID     string        `env:"NAVER_CLIENT_ID"`
	NaverClientSecret string        `env:"NAVER_CLIENT_SECRET"`
	NaverBaseURL      string        `env:"NAVER_BASE_URL" envDefault:"https://openapi.naver.com"`
	DigestInterval    time.Duration `env:"DIGEST_INTERVAL" envDefault:"1h"`
	DigestBotUserID   int64         `env:"DIGEST_BOT_USER_ID" envDefault:"2"`

	// KafkaBrokers empty disables the async moderation queue.
	KafkaBrokers      []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaGroupID      string   `env:"KAFKA_GROUP_ID" envDefault:"hirehub-ai-moderation"`
	ModerationWorkers int      `env:"MODERATION_WORKERS" envDefault:"4"`
	RedisURL          string   `env:"REDIS_URL"`
	RateLimitPerMin   int      `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"hirehub-ai"`

	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	// Write timeout must outlive a quota wait (up to a minute) plus the model call.
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"150s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"140s"`

	WorkerMetricsPort int `env:"WORKER_METRICS_PORT" envDefault:"9090"`

	// Sibling backend publish retry
	PublishMaxElapsedTime  time.Duration `env:"PUBLISH_BACKOFF_MAX_ELAPSED_TIME" envDefault:"60s"`
	PublishInitialInterval time.Duration `env:"PUBLISH_BACKOFF_INITIAL_INTERVAL" envDefault:"1s"`
	PublishMaxInterval     time.Duration `env:"PUBLISH_BACKOFF_MAX_INTERVAL" envDefault:"15s"`
	PublishMultiplier      float64       `env:"PUBLISH_BACKOFF_MULTIPLIER" envDefault:"2.0"`
	PublishTimeout         time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"10s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// AsyncModerationEnabled reports whether a Kafka cluster is configured.
func (c Config) AsyncModerationEnabled() bool { return len(c.KafkaBrokers) > 0 }

// NewsEnabled reports whether news search credentials are present.
func (c Config) NewsEnabled() bool { return c.NaverClientID != "" && c.NaverClientSecret != "" }
