package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig 描述 Redis 发布器的连接参数。
type RedisConfig struct {
	Address  string `yaml:"address" json:"address"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	// Channel 是 PUBLISH 使用的频道，订阅者可实时收到变更。
	Channel string `yaml:"channel" json:"channel"`
	// ListKey 保存最近的事件，便于离线消费者补读；MaxLen 为其长度上限。
	ListKey string `yaml:"list_key" json:"list_key"`
	MaxLen  int64  `yaml:"max_len" json:"max_len"`
}

// RedisPublisher 通过 Redis Pub/Sub 与一个定长 list 发布事件。
type RedisPublisher struct {
	client  *redis.Client
	channel string
	listKey string
	maxLen  int64
}

// NewRedisPublisher 创建 Redis 发布器，并在返回前确认连接可用。
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address must not be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return newRedisPublisher(client, cfg), nil
}

func newRedisPublisher(client *redis.Client, cfg RedisConfig) *RedisPublisher {
	channel := cfg.Channel
	if channel == "" {
		channel = "taskhub:events"
	}
	listKey := cfg.ListKey
	if listKey == "" {
		listKey = "taskhub:events:recent"
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &RedisPublisher{client: client, channel: channel, listKey: listKey, maxLen: maxLen}
}

// Publish 在一个事务管道中完成 PUBLISH、LPUSH 与 LTRIM。
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, payload)
		pipe.LPush(ctx, p.listKey, payload)
		pipe.LTrim(ctx, p.listKey, 0, p.maxLen-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish event: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
