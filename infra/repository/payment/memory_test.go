package payment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/payflow/pkg/domain/payment"
	repo "github.com/amirasaad/payflow/pkg/repository/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, opts Options) *MemoryRepository {
	t.Helper()
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	return NewMemoryRepository(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t, Options{})

	created, err := r.Create(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, created.Status)
	assert.NotEmpty(t, created.ID)

	got, ok, err := r.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created, got)
}

func TestMemoryRepository_CreateRejectsInvalidUser(t *testing.T) {
	r := newTestRepository(t, Options{})
	_, err := r.Create(context.Background(), " ")
	require.ErrorIs(t, err, payment.ErrInvalidUserID)

	keys, err := r.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryRepository_GetAbsent(t *testing.T) {
	r := newTestRepository(t, Options{})
	got, ok, err := r.Get(context.Background(), "never-created")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, payment.Payment{}, got)
}

func TestMemoryRepository_CreateOverwrites(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t, Options{})

	first, err := r.Create(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = r.UpdateStatus(ctx, "user-1", payment.StatusApproved)
	require.NoError(t, err)

	second, err := r.Create(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, ok, err := r.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, payment.StatusPending, got.Status)

	keys, err := r.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, keys)
}

func TestMemoryRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("approves pending payment", func(t *testing.T) {
		r := newTestRepository(t, Options{})
		created, err := r.Create(ctx, "user-1")
		require.NoError(t, err)

		updated, ok, err := r.UpdateStatus(ctx, "user-1", payment.StatusApproved)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, payment.StatusApproved, updated.Status)

		got, _, err := r.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusApproved, got.Status)
	})

	t.Run("absent key is not an error", func(t *testing.T) {
		r := newTestRepository(t, Options{})
		_, ok, err := r.UpdateStatus(ctx, "ghost", payment.StatusApproved)
		require.NoError(t, err)
		assert.False(t, ok)

		keys, err := r.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys, "update must not create records")
	})

	t.Run("approved never goes back to pending", func(t *testing.T) {
		r := newTestRepository(t, Options{})
		_, err := r.Create(ctx, "user-1")
		require.NoError(t, err)
		_, _, err = r.UpdateStatus(ctx, "user-1", payment.StatusApproved)
		require.NoError(t, err)

		_, ok, err := r.UpdateStatus(ctx, "user-1", payment.StatusPending)
		require.ErrorIs(t, err, payment.ErrInvalidStatusTransition)
		assert.True(t, ok)

		got, _, err := r.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusApproved, got.Status)
	})
}

func TestMemoryRepository_ConcurrentApprovals(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t, Options{Workers: 8})
	created, err := r.Create(ctx, "user-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := r.UpdateStatus(ctx, "user-1", payment.StatusApproved)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	got, _, err := r.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, payment.StatusApproved, got.Status)
}

func TestMemoryRepository_Keys(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t, Options{})
	for _, id := range []string{"c", "a", "b"} {
		_, err := r.Create(ctx, id)
		require.NoError(t, err)
	}
	keys, err := r.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestMemoryRepository_SaturatedPoolHonoursContext(t *testing.T) {
	r := newTestRepository(t, Options{Workers: 1, Latency: 200 * time.Millisecond})

	go func() {
		_, _ = r.Create(context.Background(), "slow")
	}()
	// let the slow create take the only worker
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, _, err := r.Get(ctx, "slow")
	require.ErrorIs(t, err, repo.ErrStoreUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestMemoryRepository_ParallelUsers(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t, Options{Workers: 4})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Create(ctx, fmt.Sprintf("user-%02d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	keys, err := r.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 20)
	assert.Equal(t, "user-00", keys[0])
}
