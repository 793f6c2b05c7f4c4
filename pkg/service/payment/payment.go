// Package payment creates payments and waits for their asynchronous approval,
// and answers lookups against the payment store.
//
// CreatePayment stores a PENDING payment, publishes it on the event channel,
// then polls the store until the approval listener marks it APPROVED. Each
// attempt has its own deadline; failed attempts are retried with exponential
// backoff, and every retry creates a new payment for the user.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/domain/payment"
	"github.com/amirasaad/payflow/pkg/metrics"
	"github.com/amirasaad/payflow/pkg/publisher"
	repo "github.com/amirasaad/payflow/pkg/repository/payment"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrApprovalTimeout is returned by an attempt that did not observe approval
	// before its deadline.
	ErrApprovalTimeout = errors.New("payment approval timed out")
	// ErrRetriesExhausted wraps the last attempt error once no retries remain.
	ErrRetriesExhausted = errors.New("payment retries exhausted")
)

// Service is the payment workflow entry point used by the HTTP layer.
type Service struct {
	repo      repo.Repository
	publisher publisher.Publisher
	cfg       config.Payment
	metrics   *metrics.Metrics
	logger    *slog.Logger
	keys      singleflight.Group
}

// NewService creates a Service. m may be nil.
func NewService(
	repository repo.Repository,
	pub publisher.Publisher,
	cfg *config.Payment,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repository,
		publisher: pub,
		metrics:   m,
		logger:    logger.With("component", "payment-service"),
	}
	if cfg != nil {
		s.cfg = *cfg
	}
	if s.cfg.PollInterval <= 0 {
		s.cfg.PollInterval = time.Second
	}
	if s.cfg.AttemptTimeout <= 0 {
		s.cfg.AttemptTimeout = 20 * time.Second
	}
	if s.cfg.LookupParallel < 1 {
		s.cfg.LookupParallel = 16
	}
	return s
}

func (s *Service) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.BackoffBase
	b.RandomizationFactor = 0
	b.Multiplier = 2
	if s.cfg.BackoffMax > 0 {
		b.MaxInterval = s.cfg.BackoffMax
	}
	b.MaxElapsedTime = 0
	retries := s.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// CreatePayment returns the user's payment once it is APPROVED. It makes at
// most MaxRetries+1 attempts; a payment returned from here is always APPROVED.
func (s *Service) CreatePayment(ctx context.Context, userID string) (payment.Payment, error) {
	log := s.logger.With("user_id", userID)
	start := time.Now()

	var (
		approved payment.Payment
		attempt  int
	)
	operation := func() error {
		attempt++
		p, err := s.attempt(ctx, userID, attempt)
		if err != nil {
			return err
		}
		approved = p
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.metrics.Retry()
		log.Warn("Retrying payment creation", "attempt", attempt+1, "backoff", wait, "error", err)
	}

	err := backoff.RetryNotify(operation, s.retryPolicy(ctx), notify)
	if err != nil {
		if ctx.Err() != nil || isPermanent(err) {
			return payment.Payment{}, err
		}
		log.Error("Payment was not approved", "attempts", attempt, "error", err)
		return payment.Payment{}, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
	}
	s.metrics.ObserveApproval(time.Since(start))
	log.Info("Payment approved", "payment_id", approved.ID, "attempts", attempt)
	return approved, nil
}

// attempt runs one create, publish, poll cycle under its own deadline.
func (s *Service) attempt(ctx context.Context, userID string, n int) (payment.Payment, error) {
	log := s.logger.With("user_id", userID, "attempt", n)
	actx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	p, err := s.repo.Create(actx, userID)
	if err != nil {
		return payment.Payment{}, s.attemptErr(ctx, actx, err)
	}
	s.metrics.PaymentCreated()
	log.Info("Payment created", "payment_id", p.ID)

	if err := s.publisher.Publish(actx, p); err != nil {
		return payment.Payment{}, s.attemptErr(ctx, actx, err)
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			current, ok, err := s.repo.Get(actx, userID)
			if err == nil {
				err = actx.Err()
			}
			if err != nil {
				return payment.Payment{}, s.attemptErr(ctx, actx, err)
			}
			if ok && current.IsApproved() {
				return current, nil
			}
			log.Debug("Payment not approved yet", "payment_id", p.ID)
		case <-actx.Done():
			return payment.Payment{}, s.attemptErr(ctx, actx, actx.Err())
		}
	}
}

// attemptErr classifies an attempt failure for the retry loop.
func (s *Service) attemptErr(ctx, actx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}
	if isPermanent(err) {
		return backoff.Permanent(err)
	}
	if actx.Err() != nil {
		s.metrics.AttemptTimeout()
		s.logger.Warn("Payment attempt timed out", "timeout", s.cfg.AttemptTimeout)
		return fmt.Errorf("%w after %s", ErrApprovalTimeout, s.cfg.AttemptTimeout)
	}
	return err
}

// isPermanent reports failures a fresh attempt cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, payment.ErrInvalidUserID)
}

// GetPayments looks up every id concurrently and streams the payments found.
// Absent and blank ids are skipped; duplicates are looked up once. The channel
// closes when all lookups finish. Callers that stop reading early must cancel ctx.
func (s *Service) GetPayments(ctx context.Context, ids []string) <-chan payment.Payment {
	out := make(chan payment.Payment)
	go func() {
		defer close(out)
		var g errgroup.Group
		g.SetLimit(s.cfg.LookupParallel)
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				p, ok, err := s.repo.Get(ctx, id)
				if err != nil {
					s.logger.Warn("Payment lookup failed", "user_id", id, "error", err)
					return nil
				}
				if !ok {
					return nil
				}
				select {
				case out <- p:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
	return out
}

// GetPayment returns the payment stored for userID.
func (s *Service) GetPayment(ctx context.Context, userID string) (payment.Payment, bool, error) {
	return s.repo.Get(ctx, strings.TrimSpace(userID))
}

// ListIDs returns every user ID that has a payment. Concurrent callers share
// one store scan.
func (s *Service) ListIDs(ctx context.Context) ([]string, error) {
	ch := s.keys.DoChan("keys", func() (any, error) {
		return s.repo.Keys(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		keys := res.Val.([]string)
		return append([]string(nil), keys...), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
