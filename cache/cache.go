package cache

import (
	"context"
	"fmt"
	"os"

	"repair-ops/logger"

	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the Redis connection backing the job queue.
func SetupCache() {
	host := os.Getenv("CACHE_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("CACHE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: os.Getenv("CACHE_PASSWORD"),
		DB:       0,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		logger.Error("Could not connect to Redis", err)
	} else {
		logger.Success("Successfully connected to Redis: " + pong)
	}
}

// GetClient returns the Redis client instance.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// SetClient swaps the client; used by tests.
func SetClient(c *redis.Client) {
	client = c
}
