package initializer

import (
	"fmt"
	"os"

	infra_eventbus "github.com/amirasaad/payflow/infra/eventbus"
	infra_repository "github.com/amirasaad/payflow/infra/repository/payment"
	"github.com/amirasaad/payflow/pkg/app"
	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/metrics"
)

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	deps := &app.Deps{}
	logger := setupLogger(cfg.Log, os.Stdout)
	deps.Logger = logger
	deps.Metrics = metrics.New()

	deps.Repository = infra_repository.NewMemoryRepository(infra_repository.Options{
		Workers: cfg.Store.Workers,
		Latency: cfg.Store.Latency,
	}, logger)

	channel, err := infra_eventbus.New(cfg.EventBus, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s event bus: %w", cfg.EventBus.Driver, err)
	}
	deps.Channel = channel

	logger.Info("Dependencies initialized",
		"event_bus", cfg.EventBus.Driver,
		"buffer_size", cfg.EventBus.BufferSize,
		"store_workers", cfg.Store.Workers,
	)
	return deps, nil
}
