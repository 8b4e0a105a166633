package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reward-core/pkg/logger"
)

// ConnectRedis 连接到 Redis
// addr: "localhost:6379"
// password: ""
func ConnectRedis(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cannot connect to redis at %s: %w", addr, err)
	}

	logger.Debug("redis connected")
	return rdb, nil
}
