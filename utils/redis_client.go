package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/miniblog/config"
)

var (
	redisMu     sync.RWMutex
	redisClient *redis.Client
)

// InitRedis connects the response cache when REDIS_ENABLED is set.
// An unreachable server only disables caching.
func InitRedis(cfg config.AppConfig) {
	if !cfg.RedisEnabled {
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis unavailable at %s, caching disabled: %v", client.Options().Addr, err)
		_ = client.Close()
		return
	}
	SetRedis(client)
}

// SetRedis replaces the cache client; nil disables caching.
func SetRedis(client *redis.Client) {
	redisMu.Lock()
	redisClient = client
	redisMu.Unlock()
}

// GetRedis returns the cache client or nil when caching is off.
func GetRedis() *redis.Client {
	redisMu.RLock()
	defer redisMu.RUnlock()
	return redisClient
}

// CloseRedis releases the cache client, if any.
func CloseRedis() {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisClient != nil {
		_ = redisClient.Close()
		redisClient = nil
	}
}
