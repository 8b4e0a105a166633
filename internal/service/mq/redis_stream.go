package mq

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"reward-core/pkg/logger"
)

// 每个 stream 最多保留的事件数 (近似裁剪)
const streamMaxLen = 10000

// RedisProducer 实现 Producer 接口 (Redis Streams)
type RedisProducer struct {
	client redis.UniversalClient
}

// NewRedisProducer 创建 Redis 生产者
func NewRedisProducer(client redis.UniversalClient) *RedisProducer {
	return &RedisProducer{
		client: client,
	}
}

// Publish 发送消息到 Redis Stream (XADD)
func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}).Err()

	if err != nil {
		logger.Warn("redis stream publish failed", zap.String("stream", topic), zap.Error(err))
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

// Close is a no-op: the Redis client is owned by the caller.
func (p *RedisProducer) Close() error {
	return nil
}
