package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/estatebot/core/logger"
)

// RedisConfig holds Redis connection settings shared by the session store
// and the notification queue.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// Enabled reports whether an address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// Options converts the settings to go-redis options.
func (c RedisConfig) Options() *redis.Options {
	return &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// ConnectRedis opens a client and pings it once.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	start := time.Now()
	rdb := redis.NewClient(cfg.Options())
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		logger.DB.Error("redis connect failed",
			slog.String("event", "redis.connect"),
			slog.String("addr", cfg.Addr),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	logger.DB.Info("redis connected",
		slog.String("event", "redis.connect"),
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.Duration("duration", time.Since(start)),
	)
	return rdb, nil
}
