// Command bus_smoketest pushes a batch of payment notifications through the
// configured event channel and waits for all of them to come back.
//
// Usage: EVENT_BUS_DRIVER=kafka go run -tags kafka ./scripts/bus_smoketest
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	infra_eventbus "github.com/amirasaad/payflow/infra/eventbus"
	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/domain/events"
)

const messages = 10

// RunSmokeTest emits messages on the configured channel and consumes them back.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	channel, err := infra_eventbus.New(cfg.EventBus, logger)
	if err != nil {
		return err
	}
	defer func() { _ = channel.Close() }()

	sub, err := channel.Subscribe()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	run := time.Now().UnixNano()
	want := make(map[string]struct{}, messages)
	for i := 0; i < messages; i++ {
		key := fmt.Sprintf("smoke-%d-%02d", run, i)
		want[key] = struct{}{}
		msg := events.NewMessage(events.EventTypePaymentCreated, key, []byte(`{"smoke":true}`))
		if err := channel.Emit(ctx, msg); err != nil {
			logger.Error("emit failed", "key", key, "error", err)
			return err
		}
	}
	logger.Info("messages emitted", "driver", cfg.EventBus.Driver, "count", messages)

	for len(want) > 0 {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return fmt.Errorf("channel ended early: %v", sub.Err())
			}
			// brokers may replay messages from earlier runs
			if _, expected := want[msg.Key]; expected {
				delete(want, msg.Key)
				logger.Info("consumed", "key", msg.Key)
			}
		case <-ctx.Done():
			return fmt.Errorf("%d messages not received: %w", len(want), ctx.Err())
		}
	}
	logger.Info("smoke test passed", "driver", cfg.EventBus.Driver)
	return nil
}

func main() {
	if err := RunSmokeTest(); err != nil {
		fmt.Fprintln(os.Stderr, "smoke test failed:", err)
		os.Exit(1)
	}
}
