package eventbus

import (
	"fmt"
	"log/slog"

	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/eventbus"
)

// New builds the channel selected by cfg.Driver.
func New(cfg *config.EventBus, logger *slog.Logger) (eventbus.Channel, error) {
	if cfg == nil {
		return NewWithMemory(DefaultBufferSize, logger), nil
	}
	switch cfg.Driver {
	case "", "memory":
		return NewWithMemory(cfg.BufferSize, logger), nil
	case "redis":
		ch, err := NewWithRedis(cfg.Redis, cfg.BufferSize, logger)
		if err != nil {
			return nil, err
		}
		return ch, nil
	case "kafka":
		ch, err := NewWithKafka(cfg.Kafka, cfg.BufferSize, logger)
		if err != nil {
			return nil, err
		}
		return ch, nil
	default:
		return nil, fmt.Errorf("unsupported event bus driver %q", cfg.Driver)
	}
}
