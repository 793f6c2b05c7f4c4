package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("creates pending payment with fresh id", func(t *testing.T) {
		p, err := New("user-1")
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "user-1", p.UserID)
		assert.Equal(t, StatusPending, p.Status)
		assert.False(t, p.IsApproved())
	})

	t.Run("ids are never reused", func(t *testing.T) {
		a, err := New("user-1")
		require.NoError(t, err)
		b, err := New("user-1")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("trims user id", func(t *testing.T) {
		p, err := New("  user-2 ")
		require.NoError(t, err)
		assert.Equal(t, "user-2", p.UserID)
	})

	for _, userID := range []string{"", "   ", "a,b"} {
		t.Run("rejects "+userID, func(t *testing.T) {
			_, err := New(userID)
			require.ErrorIs(t, err, ErrInvalidUserID)
		})
	}
}

func TestBuilder(t *testing.T) {
	p, err := NewBuilder().WithID("pay-1").WithUserID("user-1").Build()
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.ID)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	_, err = NewBuilder().WithID("").WithUserID("user-1").Build()
	require.Error(t, err)
}

func TestWithStatus(t *testing.T) {
	pending, err := New("user-1")
	require.NoError(t, err)

	approved, err := pending.WithStatus(StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, pending.ID, approved.ID)
	assert.Equal(t, StatusPending, pending.Status, "original value must not change")

	again, err := approved.WithStatus(StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, approved, again)

	_, err = approved.WithStatus(StatusPending)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = pending.WithStatus(Status("REFUNDED"))
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "PENDING", want: StatusPending},
		{in: "approved", want: StatusApproved},
		{in: " Approved ", want: StatusApproved},
		{in: "nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, string(tt.want), got.String())
		})
	}
}
