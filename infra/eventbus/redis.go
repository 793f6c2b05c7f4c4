//go:build redis
// +build redis

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/domain/events"
	"github.com/amirasaad/payflow/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// RedisChannel implements eventbus.Channel on a Redis stream with one consumer group.
type RedisChannel struct {
	client *redis.Client
	stream string
	group  string
	buffer int
	logger *slog.Logger

	mu         sync.Mutex
	subscribed bool
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewWithRedis connects to Redis and makes sure the stream and group exist.
func NewWithRedis(cfg *config.Redis, buffer int, logger *slog.Logger) (*RedisChannel, error) {
	if cfg == nil || cfg.URL == "" || cfg.Stream == "" || cfg.Group == "" {
		return nil, fmt.Errorf("redis event bus: url, stream, and group are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}
	err = client.XGroupCreateMkStream(context.Background(), cfg.Stream, cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("redis event bus: create group: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisChannel{
		client: client,
		stream: cfg.Stream,
		group:  cfg.Group,
		buffer: buffer,
		logger: logger.With("bus", "redis", "stream", cfg.Stream),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Emit implements eventbus.Channel.
func (b *RedisChannel) Emit(ctx context.Context, msg events.Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return eventbus.ErrChannelClosed
	}
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("redis event bus: %w", err)
	}
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": string(data)},
	}).Err(); err != nil {
		b.logger.Error("failed to emit event", "error", err, "key", msg.Key)
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", msg.Type, "key", msg.Key)
	return nil
}

// Subscribe implements eventbus.Channel.
func (b *RedisChannel) Subscribe() (eventbus.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribed {
		return nil, eventbus.ErrAlreadySubscribed
	}
	if b.closed {
		return nil, eventbus.ErrChannelClosed
	}
	b.subscribed = true
	sub := newBrokerSubscription(b.buffer)
	consumer := fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		sub.finish(b.consume(consumer, sub))
	}()
	b.logger.Info("subscriber attached", "consumer", consumer)
	return sub, nil
}

func (b *RedisChannel) consume(consumer string, sub *brokerSubscription) error {
	failures := 0
	for {
		res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: consumer,
			Streams:  []string{b.stream, ">"},
			Count:    16,
			Block:    time.Second,
		}).Result()
		if b.ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			failures++
			b.logger.Error("error reading from stream", "error", err, "consecutive", failures)
			if failures >= maxConsecutiveReadErrors {
				return fmt.Errorf("redis event bus: read failed: %w", err)
			}
			time.Sleep(time.Second)
			continue
		}
		failures = 0
		for _, stream := range res {
			for _, xmsg := range stream.Messages {
				raw, _ := xmsg.Values["event"].(string)
				msg, err := events.Decode([]byte(raw))
				if err != nil {
					b.logger.Error("dropping undecodable event", "error", err, "msg_id", xmsg.ID)
				} else {
					select {
					case sub.out <- msg:
					case <-b.ctx.Done():
						return nil
					}
				}
				if err := b.client.XAck(b.ctx, b.stream, b.group, xmsg.ID).Err(); err != nil {
					b.logger.Error("failed to acknowledge message", "error", err, "msg_id", xmsg.ID)
				}
			}
		}
	}
}

// Close implements eventbus.Channel.
func (b *RedisChannel) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

var _ eventbus.Channel = (*RedisChannel)(nil)
