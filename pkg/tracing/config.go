package tracing

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the OpenTelemetry exporter settings.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	InstanceID     string

	// OTLP gRPC collector address, host:port
	Endpoint string
	Insecure bool

	SampleRatio float64
}

// NewConfig reads the standard OTEL_* variables plus ENVIRONMENT and HOSTNAME.
func NewConfig() *Config {
	return &Config{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "notifyhub"),
		ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		InstanceID:     getEnv("INSTANCE_ID", os.Getenv("HOSTNAME")),
		Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Insecure:       getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRatio:    getEnvFloat("OTEL_TRACE_SAMPLE_RATIO", 1.0),
	}
}

func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return &ConfigError{Field: "ServiceName", Message: "service name cannot be empty"}
	}
	if c.Endpoint == "" {
		return &ConfigError{Field: "Endpoint", Message: "OTLP exporter endpoint cannot be empty"}
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return &ConfigError{Field: "SampleRatio", Message: "sampling ratio must be between 0 and 1"}
	}
	return nil
}

type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tracing config error: %s: %s", e.Field, e.Message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
