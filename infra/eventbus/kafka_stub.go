//go:build !kafka
// +build !kafka

package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/domain/events"
	"github.com/amirasaad/payflow/pkg/eventbus"
)

var errKafkaDisabled = fmt.Errorf("kafka event bus: build with -tags kafka to enable")

type KafkaChannel struct{}

func NewWithKafka(cfg *config.Kafka, buffer int, logger *slog.Logger) (*KafkaChannel, error) {
	return nil, errKafkaDisabled
}

func (b *KafkaChannel) Emit(ctx context.Context, msg events.Message) error {
	return errKafkaDisabled
}

func (b *KafkaChannel) Subscribe() (eventbus.Subscription, error) {
	return nil, errKafkaDisabled
}

func (b *KafkaChannel) Close() error { return nil }

var _ eventbus.Channel = (*KafkaChannel)(nil)
