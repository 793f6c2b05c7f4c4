package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/amirasaad/payflow/pkg/domain/payment"
	repo "github.com/amirasaad/payflow/pkg/repository/payment"
	"golang.org/x/sync/semaphore"
)

// Options tunes the in-memory repository.
type Options struct {
	// Workers bounds how many store operations run at once.
	Workers int
	// Latency is added to every operation to mimic I/O.
	Latency time.Duration
}

// MemoryRepository keeps payments in a map keyed by user ID.
// Every operation is dispatched to a bounded worker pool so a slow store never
// stalls request dispatch; callers wait on their context, not on the pool.
type MemoryRepository struct {
	mu       sync.RWMutex
	payments map[string]payment.Payment
	pool     *semaphore.Weighted
	latency  time.Duration
	logger   *slog.Logger
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository(opts Options, logger *slog.Logger) *MemoryRepository {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryRepository{
		payments: make(map[string]payment.Payment),
		pool:     semaphore.NewWeighted(int64(opts.Workers)),
		latency:  opts.Latency,
		logger:   logger.With("component", "payment-store"),
	}
}

// dispatch runs fn on the worker pool and waits for it or for ctx.
// Once dispatched, fn runs to completion even if the caller gives up.
func (r *MemoryRepository) dispatch(ctx context.Context, op string, fn func()) error {
	if err := r.pool.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %s: %w", repo.ErrStoreUnavailable, op, err)
	}
	done := make(chan struct{})
	go func() {
		defer r.pool.Release(1)
		defer close(done)
		if r.latency > 0 {
			time.Sleep(r.latency)
		}
		fn()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", repo.ErrStoreUnavailable, op, ctx.Err())
	}
}

// Create implements repository.Repository.
func (r *MemoryRepository) Create(ctx context.Context, userID string) (payment.Payment, error) {
	p, err := payment.New(userID)
	if err != nil {
		return payment.Payment{}, err
	}
	r.logger.Info("Saving payment transaction for user", "user_id", p.UserID, "payment_id", p.ID)
	var replaced bool
	err = r.dispatch(ctx, "create", func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		_, replaced = r.payments[p.UserID]
		r.payments[p.UserID] = p
	})
	if err != nil {
		return payment.Payment{}, err
	}
	if replaced {
		r.logger.Debug("Previous payment overwritten", "user_id", p.UserID)
	}
	return p, nil
}

// Get implements repository.Repository.
func (r *MemoryRepository) Get(ctx context.Context, userID string) (payment.Payment, bool, error) {
	var (
		p  payment.Payment
		ok bool
	)
	err := r.dispatch(ctx, "get", func() {
		r.mu.RLock()
		defer r.mu.RUnlock()
		p, ok = r.payments[userID]
	})
	if err != nil {
		return payment.Payment{}, false, err
	}
	r.logger.Debug("Getting payment from store", "user_id", userID, "found", ok)
	return p, ok, nil
}

// UpdateStatus implements repository.Repository. The read-modify-write runs
// under the write lock and the domain rejects backwards transitions, so
// concurrent approvals for the same key cannot interleave.
func (r *MemoryRepository) UpdateStatus(
	ctx context.Context,
	userID string,
	status payment.Status,
) (payment.Payment, bool, error) {
	var (
		updated   payment.Payment
		ok        bool
		updateErr error
	)
	err := r.dispatch(ctx, "update_status", func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		var current payment.Payment
		current, ok = r.payments[userID]
		if !ok {
			return
		}
		updated, updateErr = current.WithStatus(status)
		if updateErr == nil {
			r.payments[userID] = updated
		}
	})
	if err != nil {
		return payment.Payment{}, false, err
	}
	if updateErr != nil {
		return payment.Payment{}, ok, updateErr
	}
	if ok {
		r.logger.Info("Processing payment to status", "user_id", userID, "status", status)
	}
	return updated, ok, nil
}

// Keys implements repository.Repository.
func (r *MemoryRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.dispatch(ctx, "keys", func() {
		r.mu.RLock()
		defer r.mu.RUnlock()
		keys = make([]string, 0, len(r.payments))
		for k := range r.payments {
			keys = append(keys, k)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Ensure MemoryRepository implements the Repository interface.
var _ repo.Repository = (*MemoryRepository)(nil)
