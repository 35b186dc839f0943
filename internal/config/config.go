package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	QueueDriverKafka  = "kafka"
	QueueDriverMemory = "memory"
)

// Config is the full runtime configuration of the notifyhub process.
type Config struct {
	Port     string
	LogLevel slog.Level

	DB    DBConfig
	Queue QueueConfig

	MaxRecipients int
	Delivery      DeliveryConfig
	Scheduler     SchedulerConfig

	RedisURL       string
	AdminJWTSecret string
	TracingEnabled bool

	APIEnabled       bool
	WorkersEnabled   bool
	SchedulerEnabled bool
}

type DBConfig struct {
	URL      string
	MaxConns int
}

type QueueConfig struct {
	Driver        string
	Brokers       []string
	TopicPrefix   string
	ConsumerGroup string
	ClientID      string
}

type DeliveryConfig struct {
	Timeout          time.Duration
	LookupAttempts   int
	LookupBackoff    time.Duration
	ConflictAttempts int
	ConflictBackoff  time.Duration
	ChatBotAPIURL    string
	ChatBotRate      float64
}

type SchedulerConfig struct {
	UsageResetSchedule   string
	StaleSweepSchedule   string
	StaleProcessingAfter time.Duration
	TimeZone             string
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
		DB: DBConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Queue: QueueConfig{
			Driver:        strings.ToLower(getEnv("QUEUE_DRIVER", QueueDriverKafka)),
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			TopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", "notifyhub"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "notifyhub-workers"),
			ClientID:      getEnv("KAFKA_CLIENT_ID", "notifyhub"),
		},
		MaxRecipients: getEnvInt("MAX_RECIPIENTS", 100),
		Delivery: DeliveryConfig{
			Timeout:          getEnvDuration("DELIVERY_TIMEOUT", 10*time.Second),
			LookupAttempts:   getEnvInt("LOOKUP_ATTEMPTS", 5),
			LookupBackoff:    getEnvDuration("LOOKUP_BACKOFF", 200*time.Millisecond),
			ConflictAttempts: getEnvInt("CONFLICT_ATTEMPTS", 3),
			ConflictBackoff:  getEnvDuration("CONFLICT_BACKOFF", 100*time.Millisecond),
			ChatBotAPIURL:    getEnv("CHATBOT_API_URL", "https://api.telegram.org"),
			ChatBotRate:      getEnvFloat("CHATBOT_RATE_PER_SEC", 25),
		},
		Scheduler: SchedulerConfig{
			UsageResetSchedule:   getEnv("USAGE_RESET_SCHEDULE", "0 0 * * *"),
			StaleSweepSchedule:   getEnv("STALE_SWEEP_SCHEDULE", "*/5 * * * *"),
			StaleProcessingAfter: getEnvDuration("STALE_PROCESSING_AFTER", 15*time.Minute),
			TimeZone:             getEnv("SCHEDULER_TZ", "UTC"),
		},
		RedisURL:         os.Getenv("REDIS_URL"),
		AdminJWTSecret:   os.Getenv("ADMIN_JWT_SECRET"),
		TracingEnabled:   getEnvBool("TRACING_ENABLED", false),
		APIEnabled:       getEnvBool("API_ENABLED", true),
		WorkersEnabled:   getEnvBool("WORKERS_ENABLED", true),
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DB.URL == "" {
		return &ConfigError{Field: "DATABASE_URL", Message: "must be set"}
	}
	switch c.Queue.Driver {
	case QueueDriverKafka:
		if len(c.Queue.Brokers) == 0 {
			return &ConfigError{Field: "KAFKA_BROKERS", Message: "at least one broker is required"}
		}
	case QueueDriverMemory:
		// the in-process channel drops messages nobody subscribes to
		if !c.WorkersEnabled {
			return &ConfigError{Field: "WORKERS_ENABLED", Message: "the memory queue driver needs in-process workers"}
		}
	default:
		return &ConfigError{Field: "QUEUE_DRIVER", Message: fmt.Sprintf("unknown driver %q", c.Queue.Driver)}
	}
	if c.APIEnabled && c.AdminJWTSecret == "" {
		return &ConfigError{Field: "ADMIN_JWT_SECRET", Message: "required when the API is enabled"}
	}
	if c.MaxRecipients <= 0 {
		return &ConfigError{Field: "MAX_RECIPIENTS", Message: "must be positive"}
	}
	if c.Delivery.LookupAttempts < 1 || c.Delivery.ConflictAttempts < 1 {
		return &ConfigError{Field: "LOOKUP_ATTEMPTS/CONFLICT_ATTEMPTS", Message: "must be at least 1"}
	}
	if c.Delivery.ChatBotRate <= 0 {
		return &ConfigError{Field: "CHATBOT_RATE_PER_SEC", Message: "must be positive"}
	}
	if _, err := time.LoadLocation(c.Scheduler.TimeZone); err != nil {
		return &ConfigError{Field: "SCHEDULER_TZ", Message: err.Error()}
	}
	return nil
}

// Location returns the scheduler time zone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
