package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Jashneer/HireIQ/pkg/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks Redis connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetUserStats caches a user's computed stats
func (c *Cache) SetUserStats(ctx context.Context, userID string, stats *models.UserStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	key := fmt.Sprintf("stats:%s", userID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetUserStats retrieves a user's stats from cache
func (c *Cache) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	key := fmt.Sprintf("stats:%s", userID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get stats from cache: %w", err)
	}

	var stats models.UserStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	return &stats, nil
}

// DeleteUserStats removes a user's stats from cache
func (c *Cache) DeleteUserStats(ctx context.Context, userID string) error {
	key := fmt.Sprintf("stats:%s", userID)
	return c.client.Del(ctx, key).Err()
}
