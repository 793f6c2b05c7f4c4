package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/amirasaad/payflow/pkg/domain/events"
	"github.com/amirasaad/payflow/pkg/eventbus"
)

// DefaultBufferSize is the capacity used when none is configured.
const DefaultBufferSize = 256

// MemoryChannel is an in-process eventbus.Channel backed by a buffered Go channel.
//
// Overflow policy: error. Emit never blocks; when the buffer is full it returns
// eventbus.ErrChannelFull and the message is not enqueued. Messages emitted
// before the subscriber attaches stay buffered up to capacity.
type MemoryChannel struct {
	mu         sync.RWMutex
	ch         chan events.Message
	closed     bool
	subscribed bool
	err        error
	logger     *slog.Logger
}

// NewWithMemory creates an in-memory channel with the given buffer capacity.
func NewWithMemory(bufferSize int, logger *slog.Logger) *MemoryChannel {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryChannel{
		ch:     make(chan events.Message, bufferSize),
		logger: logger.With("bus", "memory"),
	}
}

// Emit implements eventbus.Channel.
func (b *MemoryChannel) Emit(ctx context.Context, msg events.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return eventbus.ErrChannelClosed
	}
	select {
	case b.ch <- msg:
		b.logger.Debug("event emitted", "type", msg.Type, "key", msg.Key)
		return nil
	default:
		b.logger.Warn("event dropped, channel full", "type", msg.Type, "key", msg.Key, "capacity", cap(b.ch))
		return fmt.Errorf("%w: capacity %d", eventbus.ErrChannelFull, cap(b.ch))
	}
}

// Subscribe implements eventbus.Channel.
func (b *MemoryChannel) Subscribe() (eventbus.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribed {
		return nil, eventbus.ErrAlreadySubscribed
	}
	b.subscribed = true
	b.logger.Info("subscriber attached", "buffered", len(b.ch))
	return &memorySubscription{bus: b}, nil
}

// Close implements eventbus.Channel.
func (b *MemoryChannel) Close() error {
	b.terminate(nil)
	return nil
}

// Fail ends the subscription with err after the buffered messages drain.
func (b *MemoryChannel) Fail(err error) {
	if err == nil {
		err = fmt.Errorf("memory channel failed")
	}
	b.terminate(err)
}

func (b *MemoryChannel) terminate(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.err = err
	close(b.ch)
	if err != nil {
		b.logger.Error("channel failed", "error", err)
		return
	}
	b.logger.Info("channel completed")
}

// Len returns the number of undelivered messages.
func (b *MemoryChannel) Len() int {
	return len(b.ch)
}

type memorySubscription struct {
	bus *MemoryChannel
}

func (s *memorySubscription) Messages() <-chan events.Message {
	return s.bus.ch
}

func (s *memorySubscription) Err() error {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	return s.bus.err
}

// Ensure MemoryChannel implements the Channel interface.
var _ eventbus.Channel = (*MemoryChannel)(nil)
