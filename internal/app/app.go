// Package app assembles the bot: config, logging, storage, the pet registry,
// the trigger scheduler, the care loops and the chat transport.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catbot/internal/care"
	"catbot/internal/config"
	"catbot/internal/notify"
	"catbot/internal/pet"
	"catbot/internal/render"
	"catbot/internal/scheduler"
	"catbot/internal/session"
	"catbot/internal/storage"
	"catbot/internal/timespec"
	"catbot/internal/transport/telegram"
	"catbot/internal/walk"
	"catbot/pkg/logx"
)

type App struct {
	cfgMgr   *config.Manager
	logSvc   *logx.Service
	log      logx.Logger
	store    pet.Store
	registry *pet.Registry
	sched    *scheduler.Service
	adapter  *telegram.Adapter
	handlers *telegram.Handlers
	walks    *walk.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads the config and builds every component. Nothing runs until Start.
func New(cfgPath string) (*App, error) {
	cfgMgr := config.NewManager(cfgPath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	cfgMgr.SetLogger(log.With(logx.String("comp", "config")))

	// Validated by cfg.Validate; errors here cannot happen.
	loc, err := cfg.Care.Location()
	if err != nil {
		return nil, err
	}
	nightStart, nightEnd, err := cfg.Care.NightWindow()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeoutValue(),
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	registry := pet.NewRegistry(store, cfg.Care.CodeTTLValue(), log.With(logx.String("comp", "registry")))

	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeoutValue(),
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	notifier := notify.New(adapter, cfg.Care.NotifyRatePerSec, log.With(logx.String("comp", "notify")))
	sched := scheduler.New(loc, log.With(logx.String("comp", "scheduler")))
	walks := walk.NewService(registry, sched, notifier, loc, log.With(logx.String("comp", "walk")))

	careSvc := care.NewService(care.Config{
		NightStart: nightStart,
		NightEnd:   nightEnd,
		DecayEvery: cfg.Care.DecayEvery(),
	}, registry, notifier, loc, log.With(logx.String("comp", "care")))
	if err := careSvc.Register(sched, walks); err != nil {
		return nil, err
	}

	var renderer render.CardRenderer // no image renderer wired yet; text card fallback
	handlers := telegram.NewHandlers(telegram.HandlerDeps{
		Registry: registry,
		Sessions: session.NewManager(),
		Walks:    walks,
		Notifier: notifier,
		Renderer: renderer,
		Window:   cfg.Care.WalkWindowPolicy(),
		Cooldown: cfg.Care.MessageCooldownValue(),
		CodeTTL:  cfg.Care.CodeTTLValue(),
		Log:      log.With(logx.String("comp", "handlers")),
	})

	// Hot reload covers the logging sinks; everything else needs a restart.
	cfgMgr.OnReload(func(c *config.Config) {
		logSvc.Apply(logx.Config{
			Level:   c.Logging.Level,
			Console: c.Logging.ConsoleEnabled(),
			File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
		})
	})

	return &App{
		cfgMgr:   cfgMgr,
		logSvc:   logSvc,
		log:      log,
		store:    store,
		registry: registry,
		sched:    sched,
		adapter:  adapter,
		handlers: handlers,
		walks:    walks,
	}, nil
}

// Start loads persisted state, re-arms walk reminders and begins polling.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.registry.Load(runCtx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	a.rearmWalks(runCtx)

	a.handlers.Attach(runCtx, a.adapter.Bot())
	a.adapter.PublishCommands()
	a.sched.Start()

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.adapter.Start(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		if err := a.cfgMgr.Watch(runCtx); err != nil && runCtx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("started")
	return nil
}

// rearmWalks restores the one-shot walk reminders lost on restart.
func (a *App) rearmWalks(ctx context.Context) {
	for _, cat := range a.registry.All() {
		if cat.WalkTime == "" {
			continue
		}
		res, err := timespec.Parse(cat.WalkTime)
		if err != nil || res.Cancelled {
			a.log.Warn("stored walk time unreadable", logx.Int64("owner", cat.OwnerID), logx.String("walk_time", cat.WalkTime))
			continue
		}
		if _, err := a.walks.Set(ctx, cat.OwnerID, res.Hour, res.Minute); err != nil {
			a.log.Warn("walk rearm failed", logx.Int64("owner", cat.OwnerID), logx.Err(err))
		}
	}
}

// Stop shuts everything down, waiting at most until ctx's deadline for the
// poll loop to come back.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.sched.Stop()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown timed out")
	case <-time.After(5 * time.Second):
		a.log.Warn("shutdown timed out")
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	return a.logSvc.Close()
}
