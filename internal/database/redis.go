package database

import (
	"context"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func ConnectRedis(ctx context.Context, cfg config.RedisConf, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Redis ping failed", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = rdb.Close()
		return nil, err
	}

	logger.Info("Redis connected successfully", zap.String("addr", cfg.Addr))
	return rdb, nil
}
