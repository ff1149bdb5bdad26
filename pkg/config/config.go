package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // MARKET_TIMEZONE must resolve without system zoneinfo

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Redis
	Redis RedisConfig

	// Analysis engine
	Analysis AnalysisConfig

	// HTTP rate limit
	RateLimit RateLimitConfig

	// Verdict events
	Kafka KafkaConfig

	// Tracing
	Tracing TracingConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// AnalysisConfig holds rule engine settings
type AnalysisConfig struct {
	AccountUTCOffset       string        // account clock, e.g. "-03"
	MarketTimezone         string        // IANA zone of the reference market
	CalendarFile           string        // optional YAML event table
	CalendarReloadSchedule string        // cron expression (with seconds)
	MaxUploadMB            int           // multipart upload limit
	CacheTTL               time.Duration // result cache TTL (0 disables)
	CSVExampleTemplate     string        // optional override for the CSV example
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

// KafkaConfig holds the verdict event publisher configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// AllowedUTCOffsets lists the account clocks accepted by the analyzer
var AllowedUTCOffsets = []string{"-03", "-04", "-05", "+00", "+01"}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "development"),

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Analysis: AnalysisConfig{
			AccountUTCOffset:       getEnv("ACCOUNT_UTC_OFFSET", "-03"),
			MarketTimezone:         getEnv("MARKET_TIMEZONE", "America/New_York"),
			CalendarFile:           getEnv("CALENDAR_FILE", ""),
			CalendarReloadSchedule: getEnv("CALENDAR_RELOAD_SCHEDULE", "0 */15 * * * *"),
			MaxUploadMB:            getEnvAsInt("MAX_UPLOAD_MB", 10),
			CacheTTL:               getEnvAsDuration("ANALYSIS_CACHE_TTL", "10m"),
			CSVExampleTemplate:     getEnv("CSV_EXAMPLE_TEMPLATE", ""),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},

		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsList("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_TOPIC", "withdrawal-analysis"),
		},

		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("TRACING_ENABLED", false),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "propdesk"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks every section and reports all problems at once
func (c *Config) validate() error {
	var err error

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		err = multierr.Append(err, fmt.Errorf("ENV must be one of: development, staging, production"))
	}

	if !IsAllowedUTCOffset(c.Analysis.AccountUTCOffset) {
		err = multierr.Append(err, fmt.Errorf("ACCOUNT_UTC_OFFSET must be one of: %s", strings.Join(AllowedUTCOffsets, ", ")))
	}

	if _, locErr := time.LoadLocation(c.Analysis.MarketTimezone); locErr != nil {
		err = multierr.Append(err, fmt.Errorf("MARKET_TIMEZONE is invalid: %w", locErr))
	}

	if c.Analysis.MaxUploadMB <= 0 {
		err = multierr.Append(err, fmt.Errorf("MAX_UPLOAD_MB must be positive"))
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		err = multierr.Append(err, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive when rate limiting is enabled"))
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			err = multierr.Append(err, fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true"))
		}
		if c.Kafka.Topic == "" {
			err = multierr.Append(err, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_ENABLED=true"))
		}
	}

	return err
}

// IsAllowedUTCOffset reports whether offset is an accepted account clock
func IsAllowedUTCOffset(offset string) bool {
	for _, allowed := range AllowedUTCOffsets {
		if offset == allowed {
			return true
		}
	}
	return false
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string, defaultValue string) []string {
	raw := getEnv(key, defaultValue)

	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
