package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/propdesk/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	limit := ClientRateLimit("10.0.0.1", 60)

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), limit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, limit.Limit, remaining)
	assert.False(t, limiter.Enabled())
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	// When Redis is disabled, cache operations should be no-ops
	require.NoError(t, cache.Set(ctx, "key", "value", TTLShort))

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, result)
	assert.False(t, cache.Enabled())
}

func TestCache_NilClient(t *testing.T) {
	cache := NewCache(nil, "test")

	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "AnalysisKey",
			fn:       func() string { return AnalysisKey("abc123") },
			expected: "analysis:abc123",
		},
		{
			name:     "DailyKey",
			fn:       func() string { return DailyKey("abc123", "critical", "netResult", "desc") },
			expected: "daily:abc123:critical:netResult:desc",
		},
		{
			name:     "ClientRateLimit",
			fn:       func() string { return ClientRateLimit("10.0.0.1", 60).Key },
			expected: "client:10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn())
		})
	}
}
