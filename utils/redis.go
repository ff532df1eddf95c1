package utils

import (
	"os"

	"github.com/go-redis/redis/v8"
)

// GetRedisClient builds a client for the Redis instance configured by
// REDIS_ADDR/REDIS_PASSWORD. Used for session persistence.
func GetRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}
