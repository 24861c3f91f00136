package adapter

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis used by the upstream rate gates
//
//go:generate mockgen -source=redis.go -destination=../mocks/redis.go -package=mocks -mock_names=RedisClient=MockRedisClient
type RedisClient interface {
	// Ping reports whether Redis is reachable
	Ping(ctx context.Context) *redis.StatusCmd

	// NewRateLimiter builds a GCRA limiter backed by this connection
	NewRateLimiter() RedisRateLimiter

	// Close releases the underlying connection
	Close() error
}

// RealRedisClient wraps a live go-redis client
type RealRedisClient struct {
	client *redis.Client
}

// NewRedisClient dials Redis at addr with the given credentials
func NewRedisClient(addr, password string, db int) RedisClient {
	return &RealRedisClient{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (r *RealRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	return r.client.Ping(ctx)
}

func (r *RealRedisClient) NewRateLimiter() RedisRateLimiter {
	return NewRateLimiter(redis_rate.NewLimiter(r.client))
}

func (r *RealRedisClient) Close() error {
	return r.client.Close()
}

// RedisRateLimiter answers whether a keyed request fits its limit.
// Limits are enforced in Redis so all emitter replicas share one budget.
//
//go:generate mockgen -source=redis.go -destination=../mocks/redis.go -package=mocks -mock_names=RedisRateLimiter=MockRedisRateLimiter
type RedisRateLimiter interface {
	// Allow reports whether the request under key fits within limit,
	// with retry timing when it does not
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// RealRateLimiter wraps a redis_rate.Limiter
type RealRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRateLimiter wraps an existing redis_rate.Limiter
func NewRateLimiter(limiter *redis_rate.Limiter) RedisRateLimiter {
	return &RealRateLimiter{
		limiter: limiter,
	}
}

func (r *RealRateLimiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	return r.limiter.Allow(ctx, key, limit)
}
