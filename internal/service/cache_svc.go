package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// Redis key TTLs.
const (
	ResultsCacheTTL = 5 * time.Minute
)

// CacheService provides a Redis cache-aside layer for consensus results.
type CacheService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string, log zerolog.Logger) *CacheService {
	log = log.With().Str("component", "redis").Logger()
	if redisURL == "" {
		log.Info().Msg("no URL configured, caching disabled")
		return &CacheService{log: log}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid URL, caching disabled")
		return &CacheService{log: log}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{log: log}
	}

	log.Info().Msg("connected, caching enabled")
	return &CacheService{rdb: rdb, log: log}
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(rdb *redis.Client, log zerolog.Logger) *CacheService {
	return &CacheService{rdb: rdb, log: log.With().Str("component", "redis").Logger()}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetResults retrieves a cached results response. Returns nil if not cached or cache is disabled.
func (c *CacheService) GetResults(ctx context.Context, contentID string) (*model.ResultsResponse, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, resultsKey(contentID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp model.ResultsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode cached results: %w", err)
	}
	return &resp, nil
}

// SetResults stores a results response in cache.
func (c *CacheService) SetResults(ctx context.Context, contentID string, resp *model.ResultsResponse) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, resultsKey(contentID), b, ResultsCacheTTL).Err()
}

// InvalidateResults removes a content item's results from cache.
func (c *CacheService) InvalidateResults(ctx context.Context, contentID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, resultsKey(contentID)).Err()
}

// ClearPattern deletes every key matching pattern, scanning in batches.
// It returns the number of keys removed.
func (c *CacheService) ClearPattern(ctx context.Context, pattern string) (int, error) {
	if c.rdb == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func resultsKey(contentID string) string {
	return fmt.Sprintf("results:%s", contentID)
}
