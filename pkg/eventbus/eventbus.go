package eventbus

import (
	"context"
	"errors"

	"github.com/amirasaad/payflow/pkg/domain/events"
)

var (
	// ErrChannelFull is returned by Emit when the channel buffer has no room.
	// Emit never blocks; the caller decides whether to retry.
	ErrChannelFull = errors.New("event channel full")
	// ErrChannelClosed is returned by Emit after the channel completed.
	ErrChannelClosed = errors.New("event channel closed")
	// ErrAlreadySubscribed is returned when a second subscriber tries to attach.
	ErrAlreadySubscribed = errors.New("event channel already has a subscriber")
)

// Channel is a many-producer, single-consumer broadcast of payment notifications.
// Delivery to the subscriber is FIFO for a single producer.
type Channel interface {
	// Emit hands msg to the channel without waiting for delivery.
	Emit(ctx context.Context, msg events.Message) error
	// Subscribe attaches the only consumer. It must be called before producers run.
	Subscribe() (Subscription, error)
	// Close completes the channel; the subscription drains then ends without error.
	Close() error
}

// Subscription is the consumer side of a Channel.
type Subscription interface {
	// Messages is closed when the channel completes or fails.
	Messages() <-chan events.Message
	// Err reports why Messages closed; nil means normal completion.
	Err() error
}
