package app

import (
	"context"
	"time"

	"github.com/amirasaad/payflow/pkg/listener"
)

// setupListener attaches the approval listener as the channel's only subscriber.
func (a *App) setupListener() error {
	var delay time.Duration
	if a.Config.Listener != nil {
		delay = a.Config.Listener.ApprovalDelay
	}
	a.Listener = listener.New(
		a.Deps.Channel,
		a.Deps.Repository,
		delay,
		a.Deps.Metrics,
		a.Deps.Logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	a.stopListener = cancel
	if err := a.Listener.Start(ctx); err != nil {
		cancel()
		return err
	}
	return nil
}
