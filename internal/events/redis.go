package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis channel search status events are published to.
const DefaultChannel = "EVENT_SEARCH_STATUS"

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// RedisPublisher publishes events as JSON to a Redis channel.
type RedisPublisher struct {
	Client  *redis.Client
	Channel string
	Logger  *logging.Logger
}

// NewRedisPublisher returns a publisher on channel (DefaultChannel when empty).
func NewRedisPublisher(client *redis.Client, channel string, logger *logging.Logger) *RedisPublisher {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{Client: client, Channel: channel, Logger: logger}
}

// Publish sends the event. Failures are logged and otherwise ignored.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.Client == nil {
		return
	}

	payload, err := json.Marshal(struct {
		Type string `json:"type"`
		Event
	}{Type: p.Channel, Event: event})
	if err != nil {
		p.warn("encode search status event failed", event, err)
		return
	}

	if err := p.Client.Publish(ctx, p.Channel, payload).Err(); err != nil {
		p.warn("publish "+p.Channel+" failed", event, err)
	}
}

func (p *RedisPublisher) warn(msg string, event Event, err error) {
	if p.Logger == nil {
		return
	}
	p.Logger.Warn(msg,
		zap.String("search_id", event.SearchID),
		zap.String("stage", string(event.Stage)),
		zap.Error(err))
}
