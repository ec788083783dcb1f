package worker

import (
	"context"
	"log/slog"
	"sync/atomic"

	"fieldtrack/internal/delivery"
	"fieldtrack/internal/domain/lifecycle"
	"fieldtrack/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// dispatcher runs the outbox delivery loop in the background
type dispatcher struct {
	logger *slog.Logger
	syncUC usecase.SyncUsecase

	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

// ServerParams holds dependencies for the dispatcher
type ServerParams struct {
	fx.In

	Lc     fx.Lifecycle
	Logger *slog.Logger
	SyncUC usecase.SyncUsecase
}

// NewServer creates the outbox dispatcher delivery
func NewServer(params ServerParams) (delivery.Delivery, error) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &dispatcher{
		logger: params.Logger,
		syncUC: params.SyncUC,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	params.Lc.Append(fx.Hook{
		OnStop: d.stop,
	})

	return d, nil
}

// Serve blocks until the dispatcher is stopped
func (d *dispatcher) Serve(_ context.Context) error {
	d.started.Store(true)
	defer close(d.done)

	d.logger.Info("Starting outbox dispatcher")
	if err := d.syncUC.Run(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return errors.WithStack(err)
	}

	return nil
}

// stop cancels the loop and waits for the in-flight pass to return
func (d *dispatcher) stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	d.logger.Info("Shutting down outbox dispatcher")
	d.cancel()
	if !d.started.Load() {
		return nil
	}

	select {
	case <-d.done:
		return nil
	case <-shutdownCtx.Done():
		return errors.Wrap(shutdownCtx.Err(), "outbox dispatcher did not stop in time")
	}
}
