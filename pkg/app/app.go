package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/amirasaad/payflow/pkg/config"
	"github.com/amirasaad/payflow/pkg/eventbus"
	"github.com/amirasaad/payflow/pkg/listener"
	"github.com/amirasaad/payflow/pkg/metrics"
	"github.com/amirasaad/payflow/pkg/publisher"
	repo "github.com/amirasaad/payflow/pkg/repository/payment"
	paymentsvc "github.com/amirasaad/payflow/pkg/service/payment"
)

// Deps contains the infrastructure the application is assembled from.
type Deps struct {
	Repository repo.Repository
	Channel    eventbus.Channel
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

type App struct {
	Deps           *Deps
	Config         *config.App
	Publisher      *publisher.PaymentPublisher
	Listener       *listener.ApprovalListener
	PaymentService *paymentsvc.Service

	stopListener context.CancelFunc
}

// New assembles the application and starts the approval listener, so the
// channel has its subscriber before any request can publish.
func New(deps *Deps, cfg *config.App) (*App, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	a := &App{
		Deps:   deps,
		Config: cfg,
	}
	a.Publisher = publisher.New(deps.Channel, deps.Metrics, deps.Logger)
	a.PaymentService = paymentsvc.NewService(
		deps.Repository,
		a.Publisher,
		cfg.Payment,
		deps.Metrics,
		deps.Logger,
	)
	if err := a.setupListener(); err != nil {
		return nil, err
	}
	return a, nil
}

// Shutdown completes the event channel and waits for the listener to finish
// the approvals already in flight. Approvals still pending when ctx ends are
// abandoned.
func (a *App) Shutdown(ctx context.Context) error {
	closeErr := a.Deps.Channel.Close()
	waitErr := a.Listener.Wait(ctx)
	a.stopListener()
	return errors.Join(closeErr, waitErr)
}
