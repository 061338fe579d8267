package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Storage     string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Model       ModelConfig
	Generation  GenerationConfig
	Compliance  ComplianceConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration. Without Redis, outcome tallies
// stay in process memory and lifecycle events are not published.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ModelConfig holds the generative model provider configuration.
// BaseURL must point at an OpenAI-compatible chat completions API.
type ModelConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	RateLimitRPM   int
	RateLimitBurst int
	Temperature    float64
	MaxTokens      int
}

// GenerationConfig tunes the recommendation pipeline.
type GenerationConfig struct {
	BulkWorkers        int
	RecentContactDays  int
	ContactHistorySize int
	PrescriptionSize   int
	MinSignalRelevance int
	MaxSignals         int
}

// ComplianceConfig points at an optional YAML file extending the built-in rules.
type ComplianceConfig struct {
	RulesFile string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
	// SampleRatio is the fraction of root traces kept, in [0, 1]
	SampleRatio float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Storage:     getEnv("STORAGE_BACKEND", "postgres"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "next_best_action"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Model: ModelConfig{
			APIKey:         getEnv("MODEL_API_KEY", ""),
			BaseURL:        getEnv("MODEL_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:          getEnv("MODEL_NAME", "anthropic/claude-3.5-sonnet"),
			Timeout:        getEnvAsDuration("MODEL_TIMEOUT", 30*time.Second),
			RateLimitRPM:   getEnvAsInt("MODEL_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("MODEL_RATE_LIMIT_BURST", 5),
			Temperature:    getEnvAsFloat("MODEL_TEMPERATURE", 0.7),
			MaxTokens:      getEnvAsInt("MODEL_MAX_TOKENS", 2000),
		},
		Generation: GenerationConfig{
			BulkWorkers:        getEnvAsInt("GENERATION_BULK_WORKERS", 4),
			RecentContactDays:  getEnvAsInt("GENERATION_RECENT_CONTACT_DAYS", 30),
			ContactHistorySize: getEnvAsInt("GENERATION_CONTACT_HISTORY", 5),
			PrescriptionSize:   getEnvAsInt("GENERATION_PRESCRIPTIONS", 3),
			MinSignalRelevance: getEnvAsInt("GENERATION_MIN_SIGNAL_RELEVANCE", 7),
			MaxSignals:         getEnvAsInt("GENERATION_MAX_SIGNALS", 3),
		},
		Compliance: ComplianceConfig{
			RulesFile: getEnv("COMPLIANCE_RULES_FILE", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "next-best-action"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			SampleRatio:    getEnvAsFloat("OTEL_TRACE_SAMPLE_RATIO", 1.0),
		},
	}

	if cfg.Generation.BulkWorkers <= 0 {
		return nil, fmt.Errorf("GENERATION_BULK_WORKERS must be positive, got %d", cfg.Generation.BulkWorkers)
	}
	if cfg.Storage != "postgres" && cfg.Storage != "memory" {
		return nil, fmt.Errorf("STORAGE_BACKEND must be postgres or memory, got %q", cfg.Storage)
	}
	if cfg.Model.Timeout <= 0 {
		return nil, fmt.Errorf("MODEL_TIMEOUT must be positive, got %s", cfg.Model.Timeout)
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return nil, fmt.Errorf("OTEL_TRACE_SAMPLE_RATIO must be within [0, 1], got %g", cfg.OTEL.SampleRatio)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
