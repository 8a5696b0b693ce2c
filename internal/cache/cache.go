package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kalamitra/backend/internal/models"
)

// AggregateCache is a redis read-through cache for aggregate display reads
// with a 5-minute TTL. It only ever serves the read endpoints; transactions
// always go to the store. A nil cache is valid and disables caching.
type AggregateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects using REDIS_HOST/REDIS_PORT/REDIS_PASSWORD. Returns nil when
// redis is not configured or unreachable.
func New() *AggregateCache {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Printf("Redis unavailable, aggregate cache disabled: %v", err)
		return nil
	}

	log.Println("✅ Redis connected successfully")
	return &AggregateCache{client: client, ttl: 5 * time.Minute}
}

func cacheKey(ref models.Ref) string {
	return "aggregate:" + ref.String()
}

func (c *AggregateCache) Get(ctx context.Context, ref models.Ref) (*models.Aggregate, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey(ref)).Result()
	if err != nil {
		return nil, false
	}
	var agg models.Aggregate
	if err := json.Unmarshal([]byte(raw), &agg); err != nil {
		return nil, false
	}
	return &agg, true
}

func (c *AggregateCache) Set(ctx context.Context, ref models.Ref, agg models.Aggregate) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(agg)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(ref), payload, c.ttl).Err(); err != nil {
		log.Printf("Failed to cache aggregate %s: %v", ref, err)
	}
}

func (c *AggregateCache) Invalidate(ctx context.Context, ref models.Ref) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(ref)).Err(); err != nil {
		log.Printf("Failed to invalidate aggregate %s: %v", ref, err)
	}
}
