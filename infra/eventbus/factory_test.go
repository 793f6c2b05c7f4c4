package eventbus

import (
	"testing"

	"github.com/amirasaad/payflow/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		ch, err := New(&config.EventBus{Driver: "memory", BufferSize: 8}, discardLogger())
		require.NoError(t, err)
		mem, ok := ch.(*MemoryChannel)
		require.True(t, ok)
		assert.Equal(t, 8, cap(mem.ch))
	})

	t.Run("nil config falls back to memory", func(t *testing.T) {
		ch, err := New(nil, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, &MemoryChannel{}, ch)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := New(&config.EventBus{Driver: "smoke-signals"}, discardLogger())
		require.Error(t, err)
	})
}
