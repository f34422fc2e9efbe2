package config

import "time"

const (
	DefaultItemSchedule     = "2h"
	DefaultLocationSchedule = "1h"
	DefaultNightlyAt        = "20:00"
	DefaultNotifyPeriod     = 2 * time.Hour
	DefaultNightlyPeriod    = 12 * time.Hour
	DefaultAwakeFromHour    = 7
	DefaultAwakeUntilHour   = 22
	DefaultExpiringDays     = 2
	DefaultRadiusMeters     = 1600
	DefaultStoragePath      = "./fridge.db"
	DefaultOverpassURL      = "https://overpass-api.de/api/interpreter"

	// NightlyEarliestHour matches the hour the nightly reminder starts
	// notifying; an earlier nightly_at would fire and never send.
	NightlyEarliestHour = 20
)

// Default returns a config that runs the daemon against a local sqlite database
// with notifications written to the console.
func Default() *Config {
	return &Config{
		Logging:   LoggingConfig{Level: "info", Console: true},
		Scheduler: SchedulerConfig{Enabled: true},
		Storage:   &StorageConfig{Driver: "sqlite", Path: DefaultStoragePath},
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Effective returns the fridge section with defaults applied.
func (f FridgeConfig) Effective() EffectiveFridge {
	np, _ := ParseDurationOrDefault("fridge.notify_period", f.NotifyPeriod, DefaultNotifyPeriod)
	nn, _ := ParseDurationOrDefault("fridge.nightly_period", f.NightlyPeriod, DefaultNightlyPeriod)
	radius := f.RadiusMeters
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}
	return EffectiveFridge{
		ItemSchedule:     stringOr(f.ItemSchedule, DefaultItemSchedule),
		LocationSchedule: stringOr(f.LocationSchedule, DefaultLocationSchedule),
		NightlyAt:        stringOr(f.NightlyAt, DefaultNightlyAt),
		NotifyPeriod:     np,
		NightlyPeriod:    nn,
		DNDEnabled:       boolOr(f.DNDEnabled, true),
		AwakeFromHour:    intOr(f.AwakeFromHour, DefaultAwakeFromHour),
		AwakeUntilHour:   intOr(f.AwakeUntilHour, DefaultAwakeUntilHour),
		ExpiringDays:     intOr(f.ExpiringDays, DefaultExpiringDays),
		SameDayExpired:   boolOr(f.SameDayExpired, false),
		RadiusMeters:     radius,
		OverpassURL:      stringOr(f.OverpassURL, DefaultOverpassURL),
	}
}

// EffectiveFridge is FridgeConfig after defaulting and duration parsing.
type EffectiveFridge struct {
	ItemSchedule     string
	LocationSchedule string
	NightlyAt        string
	NotifyPeriod     time.Duration
	NightlyPeriod    time.Duration
	DNDEnabled       bool
	AwakeFromHour    int
	AwakeUntilHour   int
	ExpiringDays     int
	SameDayExpired   bool
	RadiusMeters     float64
	OverpassURL      string
}
