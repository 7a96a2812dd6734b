package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/scheduler"
	"FinCast/internal/usecase"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
)

// Components are the wired use cases and infrastructure the App drives.
type Components struct {
	Training *usecase.InitialTraining
	Updates  *usecase.UpdateCoordinator
	Summary  *usecase.SummaryBuilder
	Params   repository.ParamStore
	Source   repository.SeriesSource
	HTTP     *xhttp.Server
}

// App encapsulates the application lifecycle.
type App struct {
	Components

	cfg *config.Config
	log *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{Components: c, cfg: cfg, log: l}
}

func (a *App) Logger() *applogger.Logger { return a.log }

// Train runs initial training for the given instruments, or for every
// instrument the source knows about when none are given. Failures are
// logged per instrument and joined.
func (a *App) Train(ctx context.Context, instruments []string) ([]string, error) {
	if len(instruments) == 0 {
		all, err := a.Source.Instruments(ctx)
		if err != nil {
			return nil, fmt.Errorf("list instruments: %w", err)
		}
		instruments = all
	}
	if len(instruments) == 0 {
		return nil, fmt.Errorf("no instruments to train: %w", domsvc.ErrNotFound)
	}

	var (
		paths []string
		errs  []error
	)
	for _, inst := range instruments {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path, err := a.Training.Run(ctx, inst)
		if err != nil {
			a.log.Error("initial training failed", applogger.String("ticker", inst), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", inst, err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

// InvalidateParams drops the cached ARIMA order for an instrument.
func (a *App) InvalidateParams(ctx context.Context, instrument string) error {
	if err := a.Params.Delete(ctx, instrument); err != nil {
		return fmt.Errorf("invalidate params %s: %w", instrument, err)
	}
	a.log.Info("arima params invalidated", applogger.String("ticker", instrument))
	return nil
}

// Serve starts the HTTP API and, when enabled, the weekly scheduler, then
// blocks until ctx is cancelled or an interrupt arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if a.cfg.Scheduler.Enabled {
		sched = scheduler.New(ctx, a.Updates, a.Summary, a.log)
		if err := sched.Register(a.cfg.Scheduler.Spec); err != nil {
			return err
		}
		sched.Start()
	}

	if err := a.HTTP.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown(sched)
}

func (a *App) shutdown(sched *scheduler.Scheduler) error {
	a.log.Info("shutting down...")

	if sched != nil {
		sched.Stop()
	}

	// ctx is already cancelled here; Stop applies its own timeout.
	if err := a.HTTP.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}

	a.log.Info("shutdown complete")
	return nil
}
