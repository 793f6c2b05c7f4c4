package config

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the values envconfig cannot express as tags.
func (c *App) Validate() error {
	var errs []error
	if c.Payment.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("PAYMENT_POLL_INTERVAL must be positive"))
	}
	if c.Payment.AttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PAYMENT_ATTEMPT_TIMEOUT must be positive"))
	}
	if c.Payment.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("PAYMENT_MAX_RETRIES must not be negative"))
	}
	if c.Payment.BackoffBase < 0 {
		errs = append(errs, fmt.Errorf("PAYMENT_BACKOFF_BASE must not be negative"))
	}
	if c.Listener.ApprovalDelay < 0 {
		errs = append(errs, fmt.Errorf("LISTENER_APPROVAL_DELAY must not be negative"))
	}
	if c.Store.Workers < 1 {
		errs = append(errs, fmt.Errorf("STORE_WORKERS must be at least 1"))
	}
	if c.EventBus.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("EVENT_BUS_BUFFER_SIZE must be at least 1"))
	}
	switch c.EventBus.Driver {
	case "memory", "redis", "kafka":
	default:
		errs = append(errs, fmt.Errorf("EVENT_BUS_DRIVER %q is not one of memory, redis, kafka", c.EventBus.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
