package mq

import "context"

// Producer 生产者接口
type Producer interface {
	// Publish 发送消息
	// key: 分区键 (例如 ProjectID)，保证同一项目的事件有序. 传空字符串则随机分区.
	Publish(ctx context.Context, topic string, key string, payload []byte) error

	// Close 释放连接
	Close() error
}

// NopProducer drops every message. Used when events.driver is "none".
type NopProducer struct{}

func (NopProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	return nil
}

func (NopProducer) Close() error { return nil }
