// Package listener approves payments announced on the event channel.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amirasaad/payflow/pkg/domain/events"
	"github.com/amirasaad/payflow/pkg/domain/payment"
	"github.com/amirasaad/payflow/pkg/eventbus"
	"github.com/amirasaad/payflow/pkg/metrics"
	repo "github.com/amirasaad/payflow/pkg/repository/payment"
)

// ErrChannelFailure wraps the error that ended the subscription abnormally.
var ErrChannelFailure = errors.New("event channel failed")

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("listener already started")

type State int32

const (
	StateStarting State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ApprovalListener consumes payment notifications and, after a fixed delay,
// marks the announced payment APPROVED. Each message is handled on its own
// goroutine so a slow approval never holds up the next message.
type ApprovalListener struct {
	channel eventbus.Channel
	repo    repo.Repository
	delay   time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	state    atomic.Int32
	started  atomic.Bool
	mu       sync.Mutex
	err      error
	done     chan struct{}
	inflight sync.WaitGroup
}

// New creates a listener in the STARTING state. m may be nil.
func New(
	channel eventbus.Channel,
	repository repo.Repository,
	delay time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ApprovalListener {
	if logger == nil {
		logger = slog.Default()
	}
	l := &ApprovalListener{
		channel: channel,
		repo:    repository,
		delay:   delay,
		metrics: m,
		logger:  logger.With("component", "approval-listener"),
		done:    make(chan struct{}),
	}
	l.setState(StateStarting)
	return l
}

// Start subscribes to the channel and consumes it in the background.
// The subscription is in place when Start returns, so messages emitted
// afterwards are never missed. Cancelling ctx stops the listener.
func (l *ApprovalListener) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	sub, err := l.channel.Subscribe()
	if err != nil {
		l.finish(fmt.Errorf("%w: subscribe: %w", ErrChannelFailure, err))
		return err
	}
	l.setState(StateRunning)
	l.logger.Info("Approval listener running", "approval_delay", l.delay)
	go l.run(ctx, sub)
	return nil
}

func (l *ApprovalListener) run(ctx context.Context, sub eventbus.Subscription) {
	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				if err := sub.Err(); err != nil {
					l.finish(fmt.Errorf("%w: %w", ErrChannelFailure, err))
					return
				}
				l.finish(nil)
				return
			}
			l.inflight.Add(1)
			go func(msg events.Message) {
				defer l.inflight.Done()
				l.approve(ctx, msg)
			}(msg)
		case <-ctx.Done():
			l.finish(nil)
			return
		}
	}
}

func (l *ApprovalListener) approve(ctx context.Context, msg events.Message) {
	log := l.logger.With("user_id", msg.Key)
	log.Info("Received payment event", "type", msg.Type)

	if l.delay > 0 {
		timer := time.NewTimer(l.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			log.Debug("Approval abandoned", "error", ctx.Err())
			return
		}
	}

	p, ok, err := l.repo.UpdateStatus(ctx, msg.Key, payment.StatusApproved)
	switch {
	case err != nil:
		log.Error("Failed to approve payment", "error", err)
	case !ok:
		log.Warn("No payment to approve")
	default:
		l.metrics.PaymentApproved()
		log.Info("Payment approved", "payment_id", p.ID)
	}
}

func (l *ApprovalListener) finish(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	l.setState(StateStopped)
	if err != nil {
		l.metrics.ListenerFailed()
		l.logger.Error("Approval listener stopped", "error", err)
	} else {
		l.logger.Info("Approval listener stopped")
	}
	close(l.done)
}

func (l *ApprovalListener) setState(s State) {
	l.state.Store(int32(s))
	l.metrics.SetListenerState(int(s))
}

// State reports the current lifecycle state.
func (l *ApprovalListener) State() State {
	return State(l.state.Load())
}

// Err is non-nil once the listener stopped because the channel failed.
func (l *ApprovalListener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Done is closed when the listener reaches STOPPED.
func (l *ApprovalListener) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the listener stopped and in-flight approvals returned,
// or ctx ends.
func (l *ApprovalListener) Wait(ctx context.Context) error {
	select {
	case <-l.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	finished := make(chan struct{})
	go func() {
		l.inflight.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
