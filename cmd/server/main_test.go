package main

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs before any tests and applies globally for all tests in the package.
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("EVENT_BUS_DRIVER", "carrier-pigeon")
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration")
}

func TestRun_UnavailableDriver(t *testing.T) {
	// without the kafka build tag the adapter refuses to start
	t.Setenv("EVENT_BUS_DRIVER", "kafka")
	t.Setenv("LOG_FORMAT", "json")
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
}
