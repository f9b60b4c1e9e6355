package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/0xcro3dile/keyreply-go/internal/adapters/clock"
	"github.com/0xcro3dile/keyreply-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/keyreply-go/internal/adapters/loader"
	"github.com/0xcro3dile/keyreply-go/internal/adapters/session"
	"github.com/0xcro3dile/keyreply-go/internal/adapters/sessionstore"
	"github.com/0xcro3dile/keyreply-go/internal/config"
	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
	"github.com/0xcro3dile/keyreply-go/internal/domain/usecases"
	"github.com/0xcro3dile/keyreply-go/internal/infrastructure/metrics"
)

type closableStore interface {
	ports.SessionStore
	Close() error
}

// app wires adapters into a SessionController for one front end.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	reload     *usecases.ReloadUseCase
	controller *usecases.SessionController
	restarter  *session.Restarter
	store      closableStore
}

// newApp loads the knowledge base and builds the controller around renderer.
// A knowledge base that fails to load is logged and replaced by an empty one.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, renderer ports.Renderer) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer := metrics.New(registry)

	var store closableStore = sessionstore.NewInMemoryStore()
	if cfg.Session.StorePath != "" {
		s, err := sessionstore.NewSQLiteStore(cfg.Session.StorePath)
		if err != nil {
			return nil, err
		}
		store = s
	}

	reload := usecases.NewReloadUseCase(loader.ForPath(cfg.Knowledge.Path), cfg.Knowledge.FallbackID, observer, logger)
	// Load failures are already logged; kb is then empty and every reply shows the diagnostic.
	kb, _ := reload.Load(ctx)

	wall := clock.New()
	restarter := session.NewRestarter()
	controller := usecases.NewSessionController(kb, session.NewID(), usecases.SessionConfig{
		FallbackID:    cfg.Knowledge.FallbackID,
		ResetTriggers: cfg.Session.ResetTriggers,
		ResetDelay:    cfg.Session.ResetDelay,
		FileAck:       cfg.Session.FileAck,
	}, usecases.SessionDeps{
		Scheduler: usecases.NewResponseScheduler(wall, cfg.Delivery.SegmentPause, cfg.Delivery.Delimiter),
		Renderer:  renderer,
		Store:     store,
		Resetter:  restarter,
		Clock:     wall,
		Observer:  observer,
		Logger:    logger,
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		reload:     reload,
		controller: controller,
		restarter:  restarter,
		store:      store,
	}, nil
}

// watch hot-reloads the knowledge file until ctx is done. It is a no-op for the
// built-in set or when watching is off.
func (a *app) watch(ctx context.Context) {
	if !a.cfg.Knowledge.Watch || a.cfg.Knowledge.Path == "" {
		return
	}

	watcher, err := filewatcher.NewFSNotifyWatcher(filewatcher.DefaultDebounce, a.logger)
	if err != nil {
		a.logger.Warn("knowledge watch unavailable", zap.Error(err))
		return
	}

	go func() {
		defer watcher.Stop()
		if err := a.reload.Watch(ctx, watcher, a.cfg.Knowledge.Path, a.controller); err != nil {
			a.logger.Warn("knowledge watch stopped", zap.Error(err))
		}
	}()
	a.logger.Info("watching knowledge base", zap.String("path", a.cfg.Knowledge.Path))
}

func (a *app) Close() {
	a.controller.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing session store", zap.Error(err))
	}
}
