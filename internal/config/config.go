package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Source       SourceConfig
	Classifier   ClassifierConfig
	Generative   GenerativeConfig
	Notification NotificationConfig
	Engine       EngineConfig
	RulesPath    string
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SourceConfig points at the external case/timeline source.
type SourceConfig struct {
	BaseURL        string
	CasesPath      string
	ActivityPath   string
	TimeoutSeconds int
}

// ClassifierConfig points at the external sentiment classifier.
type ClassifierConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// GenerativeConfig points at the optional generative-language collaborator.
type GenerativeConfig struct {
	APIKey         string
	Model          string
	MaxTokens      int
	TimeoutSeconds int
}

// NotificationConfig holds the NATS notification endpoint.
type NotificationConfig struct {
	NatsURL   string
	NatsToken string
}

// EngineConfig controls the evaluation scheduler. The sweep interval lives
// with the risk rules so it hot-reloads alongside the thresholds.
type EngineConfig struct {
	Workers   int
	QueueSize int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "csat-guardian"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Source: SourceConfig{
			BaseURL:        getEnv("CASE_SOURCE_URL", "http://localhost:9080"),
			CasesPath:      getEnv("CASE_SOURCE_CASES_PATH", "/api/v1/cases"),
			ActivityPath:   getEnv("CASE_SOURCE_ACTIVITY_PATH", "/api/v1/cases/%s/activity"),
			TimeoutSeconds: getEnvAsInt("CASE_SOURCE_TIMEOUT_SECONDS", 15),
		},
		Classifier: ClassifierConfig{
			BaseURL:        getEnv("SENTIMENT_CLASSIFIER_URL", ""),
			APIKey:         os.Getenv("SENTIMENT_CLASSIFIER_API_KEY"),
			TimeoutSeconds: getEnvAsInt("SENTIMENT_CLASSIFIER_TIMEOUT_SECONDS", 10),
		},
		Generative: GenerativeConfig{
			APIKey:         os.Getenv("GENERATIVE_API_KEY"),
			Model:          getEnv("GENERATIVE_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens:      getEnvAsInt("GENERATIVE_MAX_TOKENS", 512),
			TimeoutSeconds: getEnvAsInt("GENERATIVE_TIMEOUT_SECONDS", 20),
		},
		Notification: NotificationConfig{
			NatsURL:   getEnv("NATS_URL", ""),
			NatsToken: os.Getenv("NATS_TOKEN"),
		},
		Engine: EngineConfig{
			Workers:   getEnvAsInt("ENGINE_WORKERS", 8),
			QueueSize: getEnvAsInt("ENGINE_QUEUE_SIZE", 256),
		},
		RulesPath: getEnv("RISK_RULES_PATH", "rules.yaml"),
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the source call timeout.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Timeout returns the classifier call timeout.
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the generative call timeout.
func (g GenerativeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
