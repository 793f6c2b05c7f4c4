// Package publisher announces payment changes on the event channel.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/payflow/pkg/domain/events"
	"github.com/amirasaad/payflow/pkg/domain/payment"
	"github.com/amirasaad/payflow/pkg/eventbus"
	"github.com/amirasaad/payflow/pkg/metrics"
)

// ErrSerialization is returned when a payment cannot be encoded for the channel.
var ErrSerialization = errors.New("payment serialization failed")

// Publisher emits payment-change notifications.
type Publisher interface {
	Publish(ctx context.Context, p payment.Payment) error
}

// marshal is swapped in tests to exercise the serialization failure path.
var marshal = json.Marshal

// PaymentPublisher serializes payments and emits them keyed by user ID.
// Publish never waits for the consumer.
type PaymentPublisher struct {
	channel eventbus.Channel
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a publisher on channel. m may be nil.
func New(channel eventbus.Channel, m *metrics.Metrics, logger *slog.Logger) *PaymentPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentPublisher{
		channel: channel,
		metrics: m,
		logger:  logger.With("component", "payment-publisher"),
	}
}

// Publish implements Publisher.
func (p *PaymentPublisher) Publish(ctx context.Context, pay payment.Payment) error {
	payload, err := marshal(pay)
	if err != nil {
		p.logger.Error("Failed to serialize payment", "user_id", pay.UserID, "error", err)
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	msg := events.NewMessage(events.EventTypePaymentCreated, pay.UserID, payload)
	err = p.channel.Emit(ctx, msg)
	p.metrics.Published(err)
	if err != nil {
		p.logger.Warn("Failed to publish payment event", "user_id", pay.UserID, "error", err)
		return fmt.Errorf("publish payment %s: %w", pay.ID, err)
	}
	p.logger.Info("Payment event published", "user_id", pay.UserID, "payment_id", pay.ID)
	return nil
}

var _ Publisher = (*PaymentPublisher)(nil)
