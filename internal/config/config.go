// Package config provides configuration loading and management for the service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/meterfi/dex-stats-api/internal/chains"
)

// Config holds all application configuration.
type Config struct {
	// HTTP server port
	Port string

	// Environment is "production" or "development"; production trims error
	// bodies at the API boundary.
	Environment string

	// Upstream endpoints, pre-populated with deployment defaults and
	// overridable per URL.
	Endpoints chains.Endpoints

	// OpenTelemetry endpoint for observability; empty disables tracing.
	OtelEndpoint string

	// Outbound call policy. SubgraphRetryMax is 0 by default: the subgraph
	// client does not retry unless explicitly told to.
	RequestTimeout   time.Duration
	SubgraphRetryMax int

	// Candle store refresh schedule and per-series fetch bound.
	CandleRefreshSpec string
	CandleQueryLimit  int

	// Inbound rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// Whether to expose Prometheus metrics.
	EnableMetrics bool
}

// Load creates a new Config from environment variables.
func Load() Config {
	eps := chains.DefaultEndpoints()
	if url := os.Getenv("METER_RPC_URL"); url != "" {
		eps.RPC[chains.Metertest] = url
	}
	if url := os.Getenv("METER_STATS_SUBGRAPH_URL"); url != "" {
		eps.Stats[chains.Metertest] = url
	}
	if url := os.Getenv("METER_PRICES_SUBGRAPH_URL"); url != "" {
		eps.Prices[chains.Metertest] = url
	}
	if url := os.Getenv("ARBITRUM_PRICES_SUBGRAPH_URL"); url != "" {
		eps.Prices[chains.Arbitrum] = url
	}
	if url := os.Getenv("AVALANCHE_PRICES_SUBGRAPH_URL"); url != "" {
		eps.Prices[chains.Avalanche] = url
	}

	return Config{
		Port:              GetEnvOrDefault("PORT", "3113"),
		Environment:       strings.ToLower(GetEnvOrDefault("ENVIRONMENT", "development")),
		Endpoints:         eps,
		OtelEndpoint:      GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RequestTimeout:    GetEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		SubgraphRetryMax:  GetEnvAsInt("SUBGRAPH_RETRY_MAX", 0),
		CandleRefreshSpec: GetEnvOrDefault("CANDLE_REFRESH_SPEC", "@every 30s"),
		CandleQueryLimit:  GetEnvAsInt("CANDLE_QUERY_LIMIT", 5000),
		RateLimitRPS:      GetEnvAsFloat("RATE_LIMIT_RPS", 50.0),
		RateLimitBurst:    GetEnvAsInt("RATE_LIMIT_BURST", 100),
		EnableMetrics:     GetEnvAsBool("ENABLE_METRICS", true),
	}
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetEnv retrieves an environment variable and whether it exists.
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set.
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value.
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value.
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value.
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value.
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
