package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis wraps the catalog cache. The strategy list changes rarely and is
// read on every Track page load, so it gets a short TTL here.
type Redis struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedis(host, port string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "",
		DB:       0,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Println("Redis connected successfully")
	return &Redis{client: client, ctx: ctx}, nil
}

// Set stores a key-value pair with expiration
func (r *Redis) Set(key string, value string, expiration time.Duration) error {
	return r.client.Set(r.ctx, key, value, expiration).Err()
}

// Get retrieves a value by key. Returns redis.Nil error on a miss.
func (r *Redis) Get(key string) (string, error) {
	return r.client.Get(r.ctx, key).Result()
}

// Delete removes keys, used to invalidate the catalog after admin edits
func (r *Redis) Delete(keys ...string) error {
	return r.client.Del(r.ctx, keys...).Err()
}

// IsMiss reports whether the error from Get was a cache miss.
func IsMiss(err error) bool {
	return err == redis.Nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}
