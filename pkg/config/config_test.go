package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	// Check defaults
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "-03", cfg.Analysis.AccountUTCOffset)
	assert.Equal(t, "America/New_York", cfg.Analysis.MarketTimezone)
	assert.Equal(t, 10, cfg.Analysis.MaxUploadMB)
	assert.Equal(t, 10*time.Minute, cfg.Analysis.CacheTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("ACCOUNT_UTC_OFFSET", "-05")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "-05", cfg.Analysis.AccountUTCOffset)
	assert.Equal(t, 5, cfg.Analysis.MaxUploadMB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateInvalidEnv(t *testing.T) {
	t.Setenv("ENV", "invalid")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Env: "invalid",
		Analysis: AnalysisConfig{
			AccountUTCOffset: "-07",
			MarketTimezone:   "Mars/Olympus",
			MaxUploadMB:      0,
		},
		Kafka: KafkaConfig{Enabled: true},
	}

	err := cfg.validate()
	require.Error(t, err)
	// ENV, offset, timezone, upload size, brokers, topic
	assert.Len(t, multierr.Errors(err), 6)
}

func TestIsAllowedUTCOffset(t *testing.T) {
	tests := []struct {
		offset string
		want   bool
	}{
		{"-03", true},
		{"-04", true},
		{"-05", true},
		{"+00", true},
		{"+01", true},
		{"-3", false},
		{"+02", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.offset, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowedUTCOffset(tt.offset))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "2h")
	defer os.Unsetenv("TEST_DURATION")

	assert.Equal(t, 2*time.Hour, getEnvAsDuration("TEST_DURATION", "1h"))
	assert.Equal(t, time.Hour, getEnvAsDuration("TEST_DURATION_MISSING", "1h"))
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "100")
	assert.Equal(t, 100, getEnvAsInt("TEST_INT", 50))

	t.Setenv("TEST_INT", "abc")
	assert.Equal(t, 50, getEnvAsInt("TEST_INT", 50))
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	assert.True(t, getEnvAsBool("TEST_BOOL", false))
}
