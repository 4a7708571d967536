// internal/cache/recommendations.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plateiq/restock/internal/config"
	"github.com/plateiq/restock/internal/domain"
)

const (
	recommendationKeyPrefix = "recommendations:restaurant"
	defaultTTL              = time.Minute
)

// RecommendationCache holds ranked recommendation runs per restaurant. The
// cached list is derived state; ledger mutations invalidate it.
type RecommendationCache interface {
	Get(ctx context.Context, restaurantID int64) ([]domain.RestockRecommendation, bool, error)
	Set(ctx context.Context, restaurantID int64, recommendations []domain.RestockRecommendation) error
	Invalidate(ctx context.Context, restaurantID int64) error
}

type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecommendationCache struct{}

// NewRecommendationCache builds the redis-backed cache, or the noop cache
// when caching is disabled.
func NewRecommendationCache(cfg config.CacheConfig) (RecommendationCache, error) {
	if !cfg.Enabled {
		return &noopRecommendationCache{}, nil
	}

	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.RecommendationTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &redisRecommendationCache{client: client, ttl: ttl}, nil
}

func NewNoopRecommendationCache() RecommendationCache {
	return &noopRecommendationCache{}
}

func (c *redisRecommendationCache) Get(ctx context.Context, restaurantID int64) ([]domain.RestockRecommendation, bool, error) {
	payload, err := c.client.Get(ctx, recommendationKey(restaurantID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var recommendations []domain.RestockRecommendation
	if err := json.Unmarshal(payload, &recommendations); err != nil {
		return nil, false, fmt.Errorf("decode recommendation cache: %w", err)
	}

	return recommendations, true, nil
}

func (c *redisRecommendationCache) Set(ctx context.Context, restaurantID int64, recommendations []domain.RestockRecommendation) error {
	payload, err := json.Marshal(recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendation cache: %w", err)
	}

	if err := c.client.Set(ctx, recommendationKey(restaurantID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisRecommendationCache) Invalidate(ctx context.Context, restaurantID int64) error {
	if err := c.client.Del(ctx, recommendationKey(restaurantID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (n *noopRecommendationCache) Get(ctx context.Context, restaurantID int64) ([]domain.RestockRecommendation, bool, error) {
	return nil, false, nil
}

func (n *noopRecommendationCache) Set(ctx context.Context, restaurantID int64, recommendations []domain.RestockRecommendation) error {
	return nil
}

func (n *noopRecommendationCache) Invalidate(ctx context.Context, restaurantID int64) error {
	return nil
}

func recommendationKey(restaurantID int64) string {
	return fmt.Sprintf("%s:%d", recommendationKeyPrefix, restaurantID)
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
