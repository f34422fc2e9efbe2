package app

import (
	"strings"
	"time"

	"fridge/internal/butler"
	"fridge/internal/config"
	"fridge/internal/fridge"
	"fridge/internal/location"
	"fridge/internal/notifier"
	"fridge/internal/preferences"
	"fridge/internal/storage"
	"fridge/internal/task/engine"
	"fridge/internal/task/scheduler"
	kit "fridge/internal/transport"
	logx "fridge/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := storage.Config{Driver: "sqlite", Path: config.DefaultStoragePath}
	if cfg.Storage == nil {
		return sc, nil
	}
	if d := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)); d != "" {
		sc.Driver = d
	}
	if p := strings.TrimSpace(cfg.Storage.Path); p != "" {
		sc.Path = p
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	sc.BusyTimeout = busy
	return sc, nil
}

// mapEngineConfig defaults retries to zero: chains re-arm themselves instead.
func mapEngineConfig(cfg *config.Config) (engine.Config, error) {
	ec := engine.Config{Enabled: true, RetryMax: -1}
	te := cfg.TaskEngine
	if te == nil {
		return ec, nil
	}
	ec.Workers = te.Workers
	ec.QueueSize = te.QueueSize
	ec.HistorySize = te.HistorySize
	if te.RetryMax > 0 {
		ec.RetryMax = te.RetryMax
	}
	d, err := config.ParseDurationField("task_engine.default_timeout", te.DefaultTimeout)
	if err != nil {
		return engine.Config{}, err
	}
	ec.DefaultTimeout = d
	return ec, nil
}

func mapSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{Enabled: cfg.Scheduler.Enabled, Timezone: cfg.Scheduler.Timezone}
}

// mapNotifierConfig turns the notifier on with defaults when the section is omitted.
func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	if n == nil {
		return notifier.Config{Enabled: true, DedupWindow: 10 * time.Minute, PersistDedup: true, RetryMax: 3}, nil
	}
	base, err := config.ParseDurationField("notifier.retry_base", n.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	window, err := config.ParseDurationField("notifier.dedup_window", n.DedupWindow)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:         n.Enabled,
		Workers:         n.Workers,
		QueueSize:       n.QueueSize,
		RatePerSec:      n.RatePerSec,
		RetryMax:        n.RetryMax,
		RetryBase:       base,
		RetryMaxDelay:   maxDelay,
		DedupWindow:     window,
		DedupMaxEntries: n.DedupMaxEntries,
		PersistDedup:    n.PersistDedup,
	}, nil
}

func mapButlerConfig(cfg *config.Config) butler.Config {
	f := cfg.Fridge.Effective()
	return butler.Config{
		ItemSchedule:     f.ItemSchedule,
		LocationSchedule: f.LocationSchedule,
		NightlyAt:        f.NightlyAt,
		NotifyPeriod:     f.NotifyPeriod,
		NightlyPeriod:    f.NightlyPeriod,
		DND:              &butler.DNDWindow{Start: f.AwakeFromHour, End: f.AwakeUntilHour},
		RadiusMeters:     f.RadiusMeters,
	}
}

func mapPrefDefaults(cfg *config.Config) preferences.Defaults {
	f := cfg.Fridge.Effective()
	return preferences.Defaults{ExpiringDays: f.ExpiringDays, SameDayExpired: f.SameDayExpired, DNDEnabled: f.DNDEnabled}
}

// mapLocation prefers the tracker file over static coordinates.
func mapLocation(cfg *config.Config) location.Provider {
	l := cfg.Fridge.Location
	if p := strings.TrimSpace(l.File); p != "" {
		return location.File{Path: p}
	}
	if l.Lat != nil && l.Lon != nil {
		return location.Static{Point: fridge.Point{Lat: *l.Lat, Lon: *l.Lon}}
	}
	return location.None{}
}

func mapTarget(cfg *config.Config) kit.Target {
	return kit.Target{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}
}
