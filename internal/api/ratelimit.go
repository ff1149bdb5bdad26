package api

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/propdesk/pkg/config"
	"github.com/wonny/propdesk/pkg/redis"
)

// Limiter decides whether a client may issue one more request
type Limiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

// NewLimiter returns nil when limiting is off, the Redis sliding window when
// Redis is enabled, otherwise an in-process token bucket per client.
func NewLimiter(cfg config.RateLimitConfig, rl *redis.RateLimiter) Limiter {
	if !cfg.Enabled {
		return nil
	}
	if rl != nil && rl.Enabled() {
		return &redisLimiter{limiter: rl, perMinute: cfg.RequestsPerMinute}
	}
	return newLocalLimiter(cfg.RequestsPerMinute, cfg.Burst)
}

// redisLimiter shares the budget across API replicas
type redisLimiter struct {
	limiter   *redis.RateLimiter
	perMinute int
}

func (l *redisLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	allowed, _, err := l.limiter.Allow(ctx, redis.ClientRateLimit(clientID, l.perMinute))
	return allowed, err
}

const (
	localIdleTTL    = 10 * time.Minute
	localMaxClients = 10000
)

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps one token bucket per client in memory
type localLimiter struct {
	mu      sync.Mutex
	clients map[string]*localEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func newLocalLimiter(perMinute, burst int) *localLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	return &localLimiter{
		clients: make(map[string]*localEntry),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *localLimiter) Allow(_ context.Context, clientID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.clients[clientID]
	if !ok {
		if len(l.clients) >= localMaxClients {
			l.evictIdle(now)
		}
		entry = &localEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[clientID] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1), nil
}

func (l *localLimiter) evictIdle(now time.Time) {
	for id, e := range l.clients {
		if now.Sub(e.lastSeen) > localIdleTTL {
			delete(l.clients, id)
		}
	}
}
