package database

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
)

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// InitRedis initializes a Redis client. It returns nil when Redis is not
// reachable; callers treat a nil client as "no session blacklist".
func InitRedis(ctx context.Context, config RedisConfig) *redis.Client {
	addr := config.Host + ":" + config.Port
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis connection failed, continuing without Redis", "module", "database", "addr", addr, "error", err)
		rdb.Close()
		return nil
	}

	slog.Info("Redis connection established", "module", "database", "addr", addr)
	return rdb
}
