package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/duskpool/dp-indexer/internal/adapter"
	"github.com/duskpool/dp-indexer/internal/config"
	"github.com/duskpool/dp-indexer/internal/logger"
)

// RequestFunc performs the actual RPC call once a rate limit token is held
type RequestFunc func(ctx context.Context) (interface{}, error)

// gateResult wraps the result and error of a request
type gateResult struct {
	value interface{}
	err   error
}

// Proxy is the rate-limiting gate in front of chain RPC providers. All
// provider calls funnel through it so concurrent emitters and backfill
// workers share one request budget per provider.
//
//go:generate mockgen -source=proxy.go -destination=../mocks/ratelimit_proxy.go -package=mocks -mock_names=Proxy=MockRateLimitProxy
type Proxy interface {
	// Request submits a rate-limited request for execution
	Request(ctx context.Context, providerName string, fn RequestFunc) (interface{}, error)

	// Close gracefully shuts down the proxy
	Close() error
}

// proxy is the concrete implementation of the rate-limiting proxy
type proxy struct {
	config         config.RateLimiterConfig
	pool           pond.ResultPool[*gateResult]
	limiters       map[string]*providerGate
	redis          adapter.RedisClient
	clock          adapter.Clock
	closed         atomic.Bool
	closeOnce      sync.Once
	redisAvailable atomic.Bool
}

// providerGate holds the rate limiting state for a single RPC provider
type providerGate struct {
	name               string
	config             config.RateLimitConfig
	distributedLimiter adapter.RedisRateLimiter
	localLimiter       *rate.Limiter
	preFilterLimiter   *rate.Limiter
}

// NewProxy creates a new rate-limiting proxy. The distributed limiter lives
// in Redis so every indexer process counts against the same provider quota;
// when Redis is down and local fallback is enabled, each process limits
// itself to a reduced share instead.
func NewProxy(cfg config.RateLimiterConfig, rc adapter.RedisClient, clock adapter.Clock) (Proxy, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisAvailable := true
	if err := rc.Ping(ctx).Err(); err != nil {
		redisAvailable = false
		if !cfg.EnableLocalFallback {
			return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
		}
		logger.Warn("Redis unavailable, will use local fallback", zap.Error(err))
	}

	distributedLimiter := rc.NewRateLimiter()

	limiters := make(map[string]*providerGate)
	for name, providerConfig := range cfg.Providers {
		// The local fallback runs at a reduced share of the provider quota
		// because other processes may be falling back at the same time.
		// Floor of 1 rps so a tiny quota split does not stall entirely.
		localRate := max(float64(providerConfig.RequestsPerSecond)*cfg.LocalFallbackMultiplier, 1.0)
		localLimiter := rate.NewLimiter(rate.Limit(localRate), providerConfig.Burst)

		// The pre-filter runs at the full provider rate and keeps hopeless
		// attempts from hammering Redis
		preFilterLimiter := rate.NewLimiter(rate.Limit(providerConfig.RequestsPerSecond), providerConfig.Burst)

		limiters[name] = &providerGate{
			name:               name,
			config:             providerConfig,
			distributedLimiter: distributedLimiter,
			localLimiter:       localLimiter,
			preFilterLimiter:   preFilterLimiter,
		}
	}

	pool := pond.NewResultPool[*gateResult](
		cfg.MaxWorkers,
		pond.WithQueueSize(cfg.MaxQueueSize),
	)

	p := &proxy{
		config:   cfg,
		pool:     pool,
		limiters: limiters,
		redis:    rc,
		clock:    clock,
	}
	p.redisAvailable.Store(redisAvailable)

	go p.monitorRedisHealth()

	logger.Info("Rate limit proxy initialized",
		zap.Int("max_workers", cfg.MaxWorkers),
		zap.Int("max_queue_size", cfg.MaxQueueSize),
		zap.Int("providers", len(cfg.Providers)),
		zap.Bool("local_fallback", cfg.EnableLocalFallback),
	)

	return p, nil
}

// Request submits a rate-limited request for execution and returns the result
// with type safety. A nil proxy executes the function directly, which lets
// callers run ungated in tests and single-process setups.
func Request[T any](ctx context.Context, p Proxy, providerName string, fn func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}

	var zero T
	result, err := p.Request(ctx, providerName, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}

// Request submits a rate-limited request for execution.
// The function blocks until:
// 1. A token is acquired and the request completes
// 2. The context is canceled
// 3. The maximum queue time is exceeded
func (p *proxy) Request(ctx context.Context, providerName string, fn RequestFunc) (interface{}, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("proxy is closed")
	}

	gate, ok := p.limiters[providerName]
	if !ok {
		return nil, fmt.Errorf("provider '%s' not configured", providerName)
	}

	queueCtx, cancel := context.WithTimeout(ctx, gate.config.MaxQueueTime)
	defer cancel()

	resultTask := p.pool.Submit(func() *gateResult {
		value, err := p.runGated(queueCtx, gate, fn)
		return &gateResult{value: value, err: err}
	})

	result, err := resultTask.Wait()
	if err != nil {
		return nil, err
	}
	if result.err != nil {
		return nil, result.err
	}
	return result.value, nil
}

// runGated executes the request after acquiring a rate limit token
func (p *proxy) runGated(ctx context.Context, gate *providerGate, fn RequestFunc) (interface{}, error) {
	if err := p.waitForToken(ctx, gate); err != nil {
		return nil, err
	}

	// No timeout wrapper here; the RPC client owns its own deadlines
	return fn(ctx)
}

// waitForToken blocks until a rate limit token is held or ctx ends
func (p *proxy) waitForToken(ctx context.Context, gate *providerGate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Distributed gate first while Redis is reachable
		if p.redisAvailable.Load() {
			allowed, retryAfter, err := p.allowDistributed(ctx, gate)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				p.redisAvailable.Store(false)

				if !p.config.EnableLocalFallback {
					return fmt.Errorf("redis rate limiter unavailable: %w", err)
				}

				logger.Warn("Redis rate limiter error, falling back to local",
					zap.String("provider", gate.name),
					zap.Error(err),
				)
			} else if allowed {
				return nil
			} else if retryAfter > 0 {
				// Jitter between 50% and 150% of retryAfter spreads out
				// concurrent retries
				jitter := time.Duration(float64(retryAfter) * (0.5 + rand.Float64())) //nolint:gosec,G404
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-p.clock.After(jitter):
					continue
				}
			}
		}

		if !p.redisAvailable.Load() && p.config.EnableLocalFallback {
			if err := gate.localLimiter.Wait(ctx); err != nil {
				return err
			}
			return nil
		}

		// No token and no fallback path this round; pause before retrying
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(100 * time.Millisecond):
		}
	}
}

// allowDistributed attempts to acquire a token from the distributed gate.
// Returns: (allowed bool, retryAfter duration, error)
func (p *proxy) allowDistributed(ctx context.Context, gate *providerGate) (bool, time.Duration, error) {
	if gate.distributedLimiter == nil {
		return false, 0, fmt.Errorf("distributed limiter not available")
	}

	if err := gate.preFilterLimiter.Wait(ctx); err != nil {
		// Context error during pre-filter, not a Redis error
		return false, 0, err
	}

	redisKey := fmt.Sprintf("%s%s", p.config.RedisKeyPrefix, gate.name)

	res, err := gate.distributedLimiter.Allow(ctx, redisKey, redis_rate.PerSecond(gate.config.RequestsPerSecond))
	if err != nil {
		return false, 0, err
	}

	if res.Allowed == 0 {
		logger.Debug("Rate limit token unavailable, waiting",
			zap.String("provider", gate.name),
			zap.Duration("retry_after", res.RetryAfter),
			zap.Int("remaining", res.Remaining),
		)
		return false, res.RetryAfter, nil
	}

	return true, 0, nil
}

// monitorRedisHealth periodically checks Redis health and updates availability status
func (p *proxy) monitorRedisHealth() {
	ticker := p.clock.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		if p.closed.Load() {
			return
		}

		<-ticker.C

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := p.redis.Ping(ctx).Err()
		cancel()

		redisAvailable := err == nil
		wasAvailable := p.redisAvailable.Load()
		p.redisAvailable.Store(redisAvailable)

		if !wasAvailable && redisAvailable {
			logger.Info("Redis connection restored")
		}
	}
}

// Close gracefully shuts down the proxy.
// It waits for in-flight requests to complete with a timeout.
func (p *proxy) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		logger.Info("Shutting down rate limit proxy")

		tasks := p.pool.Stop()
		if errTasks := tasks.Wait(); errTasks != nil {
			logger.Warn("Error waiting for pool tasks to complete", zap.Error(errTasks))
			err = errTasks
		}

		if closeErr := p.redis.Close(); closeErr != nil {
			logger.Warn("Error closing Redis connection", zap.Error(closeErr))
			err = closeErr
		}

		logger.Info("Rate limit proxy shutdown complete")
	})
	return err
}

// validateConfig validates and sets defaults for the configuration
func validateConfig(cfg *config.RateLimiterConfig) error {
	if cfg.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required")
	}

	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	for name, provider := range cfg.Providers {
		if provider.RequestsPerSecond <= 0 {
			return fmt.Errorf("provider %s: requests_per_second must be positive", name)
		}

		if provider.Burst <= 0 {
			provider.Burst = provider.RequestsPerSecond
		}

		if provider.MaxQueueTime <= 0 {
			provider.MaxQueueTime = 5 * time.Minute
		}

		cfg.Providers[name] = provider
	}

	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "dp:indexer:limiter:"
	}

	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU() * 10
	}

	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 10000
	}

	if cfg.LocalFallbackMultiplier <= 0 {
		cfg.LocalFallbackMultiplier = 0.5
	}

	return nil
}
