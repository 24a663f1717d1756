package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vispipe/vispipe/internal/config"
	"github.com/vispipe/vispipe/internal/logger"
	"github.com/vispipe/vispipe/internal/pipeline"
)

// RedisSink publishes annotations as JSON on a Redis pub/sub channel.
type RedisSink struct {
	client  *redis.Client
	channel string
	logger  logger.Logger
}

func NewRedisSink(cfg config.RedisConfig, log logger.Logger) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return &RedisSink{
		client:  client,
		channel: cfg.Channel,
		logger:  log.WithField("component", "redis_sink"),
	}
}

func (s *RedisSink) Name() string { return "redis" }

// Client exposes the underlying connection for health checks.
func (s *RedisSink) Client() *redis.Client { return s.client }

func (s *RedisSink) Deliver(ctx context.Context, a pipeline.Annotation) error {
	payload, err := json.Marshal(newEvent(a))
	if err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish annotation: %w", err)
	}
	return nil
}

// Ping verifies connectivity, used at startup and by the health checker.
func (s *RedisSink) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
