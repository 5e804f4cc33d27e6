package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/events"
	"github.com/ahmedelhadi17776/worklog/pkg/config"
	"github.com/ahmedelhadi17776/worklog/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.NewLogger()

var (
	ErrCacheNotFound   = errors.New("cache: key not found")
	ErrCacheConnection = errors.New("cache: connection error")
	ErrInvalidConfig   = errors.New("cache: invalid configuration")
)

// Config holds the configuration for Redis client
type Config struct {
	Addr             string
	Password         string
	DB               int
	PoolSize         int
	MinIdleConns     int
	MaxRetries       int
	ConnTimeout      time.Duration
	OperationTimeout time.Duration
	DefaultTTL       time.Duration
	MaxKeyLength     int
	KeyPrefix        string
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		PoolSize:         50,
		MinIdleConns:     5,
		MaxRetries:       3,
		ConnTimeout:      5 * time.Second,
		OperationTimeout: 2 * time.Second,
		DefaultTTL:       5 * time.Minute,
		MaxKeyLength:     256,
		KeyPrefix:        "worklog:",
	}
}

// NewConfigFromEnv creates a Redis config from project configuration
func NewConfigFromEnv(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Addr = fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	c.Password = cfg.Redis.Password
	c.DB = cfg.Redis.DB
	if cfg.Server.Timeout > 0 {
		c.OperationTimeout = cfg.Server.Timeout
	}
	return c
}

// Cached entity types and how long their entries live
const (
	TypeDashboard = "dashboard"
	TypeReport    = "report"
	TypeCalendar  = "calendar"
	TypeProject   = "project"
	TypeTask      = "task"
	TypeTimeLog   = "time_log"
)

var defaultTTLs = map[string]time.Duration{
	TypeDashboard: time.Minute,
	TypeReport:    5 * time.Minute,
	TypeCalendar:  2 * time.Minute,
	TypeProject:   10 * time.Minute,
	TypeTask:      2 * time.Minute,
	TypeTimeLog:   30 * time.Second,
}

// CacheMetrics tracks cache hit/miss statistics
type CacheMetrics struct {
	hits   atomic.Int64
	misses atomic.Int64
	byType sync.Map // map[string]*TypeMetrics
}

type TypeMetrics struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// RedisClient wraps the Redis client with key prefixing, health tracking and metrics
type RedisClient struct {
	client    *redis.Client
	metrics   *CacheMetrics
	config    *Config
	closeOnce sync.Once
	stop      chan struct{}
	health    int32 // 0 = healthy, 1 = unhealthy
}

// DashboardEventChannel is the Redis channel for dashboard events
const DashboardEventChannel = "worklog:dashboard:events"

// NewRedisClient creates a new Redis client with the provided configuration
func NewRedisClient(cfg *Config) (*RedisClient, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeout)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r := &RedisClient{
		client:  client,
		config:  cfg,
		metrics: &CacheMetrics{},
		stop:    make(chan struct{}),
	}

	go r.healthCheckLoop()

	return r, nil
}

func (r *RedisClient) healthCheckLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.config.OperationTimeout)
			if err := r.HealthCheck(ctx); err != nil {
				atomic.StoreInt32(&r.health, 1)
				log.Error("Redis health check failed", zap.Error(err))
			} else {
				atomic.StoreInt32(&r.health, 0)
			}
			cancel()
		}
	}
}

// IsHealthy returns whether Redis is currently healthy
func (r *RedisClient) IsHealthy() bool {
	return atomic.LoadInt32(&r.health) == 0
}

// TTL returns the lifetime for a cached entity type
func (r *RedisClient) TTL(cacheType string) time.Duration {
	if ttl, ok := defaultTTLs[cacheType]; ok {
		return ttl
	}
	return r.config.DefaultTTL
}

func (r *RedisClient) withContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, r.config.OperationTimeout)
	}
	return ctx, func() {}
}

func (r *RedisClient) validateKey(key string) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidConfig)
	}
	if len(key) > r.config.MaxKeyLength {
		return fmt.Errorf("%w: key too long (max %d characters)", ErrInvalidConfig, r.config.MaxKeyLength)
	}
	return nil
}

func (r *RedisClient) prefixKey(key string) string {
	return r.config.KeyPrefix + key
}

// Get retrieves a value from the cache
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	if err := r.validateKey(key); err != nil {
		return "", err
	}
	if !r.IsHealthy() {
		return "", ErrCacheConnection
	}

	ctx, cancel := r.withContext(ctx)
	defer cancel()

	val, err := r.client.Get(ctx, r.prefixKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("%w: %s", ErrCacheNotFound, key)
		}
		return "", fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return val, nil
}

// Set stores a value in the cache
func (r *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.validateKey(key); err != nil {
		return err
	}
	if !r.IsHealthy() {
		return ErrCacheConnection
	}

	ctx, cancel := r.withContext(ctx)
	defer cancel()

	return r.client.Set(ctx, r.prefixKey(key), value, ttl).Err()
}

// Delete removes values from the cache
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if !r.IsHealthy() {
		return ErrCacheConnection
	}

	ctx, cancel := r.withContext(ctx)
	defer cancel()

	prefixedKeys := make([]string, len(keys))
	for i, key := range keys {
		if err := r.validateKey(key); err != nil {
			return err
		}
		prefixedKeys[i] = r.prefixKey(key)
	}

	return r.client.Del(ctx, prefixedKeys...).Err()
}

// ClearByPattern removes all cache entries matching the given pattern
func (r *RedisClient) ClearByPattern(ctx context.Context, pattern string) error {
	if !r.IsHealthy() {
		return ErrCacheConnection
	}

	ctx, cancel := r.withContext(ctx)
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.prefixKey(pattern), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Close stops the health loop and closes the connection pool
func (r *RedisClient) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.stop)
		err = r.client.Close()
	})
	return err
}

func (r *RedisClient) trackCacheEvent(hit bool, cacheType string) {
	value, _ := r.metrics.byType.LoadOrStore(cacheType, &TypeMetrics{})
	typeMetrics := value.(*TypeMetrics)

	if hit {
		r.metrics.hits.Add(1)
		typeMetrics.hits.Add(1)
	} else {
		r.metrics.misses.Add(1)
		typeMetrics.misses.Add(1)
	}
}

// GetMetrics returns current cache metrics
func (r *RedisClient) GetMetrics() map[string]interface{} {
	typeMetrics := make(map[string]interface{})
	r.metrics.byType.Range(func(key, value interface{}) bool {
		tm := value.(*TypeMetrics)
		typeMetrics[key.(string)] = map[string]interface{}{
			"hits":   tm.hits.Load(),
			"misses": tm.misses.Load(),
		}
		return true
	})

	hits := r.metrics.hits.Load()
	misses := r.metrics.misses.Load()
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	stats := r.client.PoolStats()
	return map[string]interface{}{
		"hits":     hits,
		"misses":   misses,
		"hit_rate": hitRate,
		"by_type":  typeMetrics,
		"health":   r.IsHealthy(),
		"pool_stats": map[string]interface{}{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"stale_conns": stats.StaleConns,
		},
		"prefix": r.config.KeyPrefix,
	}
}

// HealthCheck checks if Redis is responding
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GenerateCacheKey creates the cache key of an entity view scoped to a user
func GenerateCacheKey(entityType string, userID uuid.UUID, parts ...string) string {
	key := fmt.Sprintf("%s:%s", entityType, userID)
	for _, p := range parts {
		if p != "" {
			key += ":" + p
		}
	}
	return key
}

// CacheResponse loads key into dest, or runs fn and caches its result
func CacheResponse[T any](ctx context.Context, r *RedisClient, key, cacheType string, fn func() (T, error)) (T, error) {
	if r != nil {
		if cached, err := r.Get(ctx, key); err == nil {
			var result T
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				r.trackCacheEvent(true, cacheType)
				return result, nil
			}
			log.Warn("Discarding undecodable cache entry", zap.String("key", key))
		}
		r.trackCacheEvent(false, cacheType)
	}

	result, err := fn()
	if err != nil || r == nil {
		return result, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		log.Error("Error serializing result", zap.String("key", key), zap.Error(err))
		return result, nil
	}
	if err := r.Set(ctx, key, string(data), r.TTL(cacheType)); err != nil {
		log.Debug("Error caching result", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// GetClient returns the underlying Redis client
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

// PublishDashboardEvent publishes a dashboard event to Redis
func (r *RedisClient) PublishDashboardEvent(ctx context.Context, event *events.DashboardEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, DashboardEventChannel, data).Err()
}

// SubscribeToDashboardEvents blocks delivering dashboard events until ctx ends
func (r *RedisClient) SubscribeToDashboardEvents(ctx context.Context, callback func(*events.DashboardEvent) error) error {
	pubsub := r.client.Subscribe(ctx, DashboardEventChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event events.DashboardEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("Dropping malformed dashboard event", zap.Error(err))
				continue
			}
			if err := callback(&event); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// InvalidateUserViews drops every cached view built for a user
func (r *RedisClient) InvalidateUserViews(ctx context.Context, userID uuid.UUID) error {
	for _, t := range []string{TypeDashboard, TypeCalendar, TypeTask, TypeTimeLog} {
		if err := r.ClearByPattern(ctx, fmt.Sprintf("%s:%s*", t, userID)); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateTaskViews drops every user's task-derived views. Project managers,
// members and admins see tasks they neither created nor hold.
func (r *RedisClient) InvalidateTaskViews(ctx context.Context) error {
	for _, t := range []string{TypeDashboard, TypeCalendar, TypeTask} {
		if err := r.ClearByPattern(ctx, t+":*"); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateSharedViews drops views that aggregate across users
func (r *RedisClient) InvalidateSharedViews(ctx context.Context) error {
	for _, t := range []string{TypeReport, TypeProject} {
		if err := r.ClearByPattern(ctx, t+":*"); err != nil {
			return err
		}
	}
	return nil
}
