package redis

import (
	"context"
	"time"

	"ai-companion-chat/backend/pkg/config"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis for the Redis-backed profile store
type Client struct {
	client *redis.Client
}

// NewClient creates a client from the application configuration
func NewClient() *Client {
	cfg := config.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &Client{client: client}
}

// NewClientWithAddr creates a client for an explicit address (used in tests)
func NewClientWithAddr(addr string) *Client {
	return &Client{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Set stores a value under key with the given expiration (0 = no expiry)
func (r *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves the value stored under key
func (r *Client) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

// Del removes the value stored under key
func (r *Client) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// IsNotFound reports whether err means the key was absent
func IsNotFound(err error) bool {
	return err == redis.Nil
}

// Ping checks connectivity
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
