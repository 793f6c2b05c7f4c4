//go:build !redis
// +build !redis

package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/domain/events"
	"github.com/amirasaad/payflow/pkg/eventbus"
)

var errRedisDisabled = fmt.Errorf("redis event bus: build with -tags redis to enable")

type RedisChannel struct{}

func NewWithRedis(cfg *config.Redis, buffer int, logger *slog.Logger) (*RedisChannel, error) {
	return nil, errRedisDisabled
}

func (b *RedisChannel) Emit(ctx context.Context, msg events.Message) error {
	return errRedisDisabled
}

func (b *RedisChannel) Subscribe() (eventbus.Subscription, error) {
	return nil, errRedisDisabled
}

func (b *RedisChannel) Close() error { return nil }

var _ eventbus.Channel = (*RedisChannel)(nil)
