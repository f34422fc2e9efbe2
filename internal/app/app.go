// Package app wires configuration, storage, the task engine, the notifier and
// the butler into the fridge daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fridge/internal/butler"
	"fridge/internal/config"
	"fridge/internal/eventbus"
	"fridge/internal/location"
	"fridge/internal/notifier"
	"fridge/internal/notify"
	"fridge/internal/osm"
	"fridge/internal/preferences"
	"fridge/internal/runtime/supervisor"
	"fridge/internal/storage"
	"fridge/internal/task/engine"
	"fridge/internal/task/scheduler"
	kit "fridge/internal/transport"
	"fridge/internal/transport/logsink"
	"fridge/internal/transport/telegram"
	logx "fridge/pkg/logx"
)

// Options adjust how New opens shared resources.
type Options struct {
	// Exclusive locks the database for this process (the daemon).
	Exclusive bool
	// DryRun keeps everything in memory and logs notifications instead of sending them.
	DryRun bool
}

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	prefs *preferences.Store

	adapter kit.Adapter
	engine  *engine.Service
	sched   *scheduler.Service
	notif   *notifier.Service
	butler  *butler.Butler
}

// New loads the config at cfgPath and builds every component. Nothing runs
// until Start or RunOnce.
func New(cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	return build(cfgm, cfg, opts)
}

// NewWithConfig builds an app around an already decoded config. The file
// watcher is still pointed at cfgPath.
func NewWithConfig(cfgPath string, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfgm := config.NewManager(cfgPath)
	cfgm.Commit(cfg)
	return build(cfgm, cfg, opts)
}

func build(cfgm *config.Manager, cfg *config.Config, opts Options) (*App, error) {
	logSvc, log := logx.New(mapLogConfig(cfg))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		sc.Driver = "memory"
	}
	sc.Exclusive = opts.Exclusive
	store, err := storage.Open(sc, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	fail := func(err error) (*App, error) {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}

	bus := eventbus.New()
	prefs := preferences.New(store, mapPrefDefaults(cfg))

	adapter, err := newAdapter(cfg, opts, log)
	if err != nil {
		return fail(err)
	}

	ecfg, err := mapEngineConfig(cfg)
	if err != nil {
		return fail(err)
	}
	eng := engine.New(ecfg, log, bus)
	sched := scheduler.New(mapSchedulerConfig(cfg), eng, log, bus)

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return fail(err)
	}
	notif := notifier.New(ncfg, adapter, log, bus, store)
	handler := notify.New(notif, mapTarget(cfg), log)

	b := butler.New(mapButlerConfig(cfg), sched, butler.Deps{
		Data:    store,
		Prefs:   prefs,
		Handler: handler,
		Log:     log,
		Bus:     bus,
	}, mapLocation(cfg))

	log.Info("storage opened", logx.String("driver", sc.Driver), logx.String("path", sc.Path), logx.String("transport", adapter.Name()))
	return &App{
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		bus:     bus,
		store:   store,
		prefs:   prefs,
		adapter: adapter,
		engine:  eng,
		sched:   sched,
		notif:   notif,
		butler:  b,
	}, nil
}

// newAdapter picks Telegram when a token is configured, else the log sink.
func newAdapter(cfg *config.Config, opts Options, log logx.Logger) (kit.Adapter, error) {
	if opts.DryRun || strings.TrimSpace(cfg.Telegram.Token) == "" {
		return logsink.New(log), nil
	}
	timeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	return telegram.New(telegram.Config{Token: cfg.Telegram.Token, Timeout: timeout}, log)
}

func (a *App) Store() storage.Store          { return a.store }
func (a *App) Prefs() *preferences.Store     { return a.prefs }
func (a *App) Butler() *butler.Butler        { return a.butler }
func (a *App) Config() *config.Config        { return a.cfgm.Get() }
func (a *App) Logger() logx.Logger           { return a.log }
func (a *App) Scheduler() *scheduler.Service { return a.sched }

// Location is the configured location provider.
func (a *App) Location() location.Provider { return mapLocation(a.Config()) }

// Overpass returns a client for the configured Overpass endpoint.
func (a *App) Overpass() *osm.Client {
	return osm.New(osm.Config{URL: a.Config().Fridge.Effective().OverpassURL}, a.log)
}

// RadiusMeters is the configured geofence radius.
func (a *App) RadiusMeters() float64 { return a.Config().Fridge.Effective().RadiusMeters }

func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start runs the daemon: transport, notifier, engine, scheduler, the reminder
// chains and the config watcher.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	c := a.sup.Context()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if _, err := mapNotifierConfig(cfg); err != nil {
			return err
		}
		_, err := mapEngineConfig(cfg)
		return err
	})

	if err := a.adapter.Start(c); err != nil {
		return fmt.Errorf("transport %s: %w", a.adapter.Name(), err)
	}
	a.notif.Start(c)
	a.engine.Start(c)
	a.sched.Start(c)
	if !a.sched.Enabled() {
		a.log.Warn("scheduler disabled; reminders only run through the CLI")
	}
	if err := a.butler.Start(); err != nil {
		return fmt.Errorf("arm reminders: %w", err)
	}
	for _, k := range butler.Kinds {
		if next, ok := a.butler.Next(k); ok {
			a.log.Info("reminder armed", logx.String("kind", string(k)), logx.Time("next", next))
		}
	}
	if snap := a.sched.Snapshot(); snap.Enabled {
		a.log.Info("scheduler ready",
			logx.String("tz", snap.Timezone),
			logx.Int("schedules", len(snap.Schedules)),
			logx.Int("workers", snap.Workers),
			logx.Int("queue_cap", snap.QueueCap),
		)
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.logEvent(e)
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts; only the newest config matters.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							cfg = newer
						}
					default:
						drained = true
					}
				}
				a.apply(c, last, cfg)
				last = cfg
			}
		}
	})

	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("fridge daemon started")
	return nil
}

func (a *App) logEvent(e eventbus.Event) {
	switch ev := e.Data.(type) {
	case butler.ResultEvent:
		a.log.Debug("runner result", logx.String("runner", ev.Runner), logx.String("result", ev.Result.String()),
			logx.Bool("force", ev.Force), logx.Duration("took", ev.Took))
	case notifier.NotificationEvent:
		a.log.Debug("notification", logx.String("type", e.Type), logx.String("channel", ev.Channel), logx.String("key", ev.Key))
	default:
		a.log.Trace("event", logx.String("type", e.Type), logx.Time("time", e.Time))
	}
}

// apply hot-swaps everything that can change without a restart.
func (a *App) apply(ctx context.Context, prev, cfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, cfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}

	a.logs.Apply(mapLogConfig(cfg))

	for _, s := range sections {
		switch s {
		case "storage", "telegram":
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	if ecfg, err := mapEngineConfig(cfg); err != nil {
		a.log.Warn("invalid task_engine config; keeping previous", logx.Err(err))
	} else {
		a.engine.Apply(ctx, ecfg)
	}

	prevSched := a.sched.Enabled()
	scfg := mapSchedulerConfig(cfg)
	a.sched.Apply(scfg)
	switch {
	case prevSched && !scfg.Enabled:
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
		a.log.Info("scheduler disabled via config")
	case !prevSched && scfg.Enabled:
		a.sched.Start(ctx)
		a.log.Info("scheduler enabled via config")
	}

	if ncfg, err := mapNotifierConfig(cfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		wasOn := a.notif.Enabled()
		a.notif.Apply(ncfg)
		switch {
		case wasOn && !ncfg.Enabled:
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		case !wasOn && ncfg.Enabled:
			a.notif.Start(ctx)
		}
	}

	a.butler.Apply(mapButlerConfig(cfg), mapLocation(cfg))

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// RunOnce runs one pass synchronously and waits for its notifications to go out.
func (a *App) RunOnce(ctx context.Context, k butler.Kind, force bool) (butler.Result, error) {
	if err := a.adapter.Start(ctx); err != nil {
		return butler.Failure, fmt.Errorf("transport %s: %w", a.adapter.Name(), err)
	}
	a.notif.Start(ctx)
	res, err := a.butler.RunNow(ctx, k, force)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	a.notif.Stop(stopCtx)
	if serr := a.adapter.Stop(stopCtx); serr != nil {
		a.log.Warn("transport stop failed", logx.Err(serr))
	}
	return res, err
}

// Stop shuts the daemon down in reverse start order and closes storage.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if a.sup != nil {
		a.sup.Cancel()
	}

	step := func(name string, max time.Duration, fn func(context.Context)) {
		start := time.Now()
		c, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		fn(c)
		a.log.Debug("stop step done", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("scheduler", 3*time.Second, a.sched.Stop)
	step("engine", 10*time.Second, a.engine.Stop)
	step("notifier", 10*time.Second, a.notif.Stop)

	var errs []error
	step("transport", 3*time.Second, func(c context.Context) {
		if err := a.adapter.Stop(c); err != nil {
			errs = append(errs, err)
		}
	})
	if a.sup != nil {
		step("supervisor", 3*time.Second, func(c context.Context) {
			if err := a.sup.Wait(c); err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, err)
			}
		})
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	a.log.Info("stopped")
	if err := a.logs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases resources of an app that was never started (CLI use).
func (a *App) Close() error {
	return errors.Join(a.store.Close(), a.logs.Close())
}
