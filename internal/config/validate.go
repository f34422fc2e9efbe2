package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate rejects configs that would fail at runtime. It is used both at startup and
// as the hot-reload gate, so a bad edit never replaces a working config.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if strings.TrimSpace(c.Telegram.Token) != "" && c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required when telegram.token is set")
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if te := c.TaskEngine; te != nil {
		if te.Workers < 0 || te.QueueSize < 0 || te.HistorySize < 0 || te.RetryMax < 0 {
			return errors.New("task_engine: workers, queue_size, history_size and retry_max must be >= 0")
		}
		if _, err := ParseDurationField("task_engine.default_timeout", te.DefaultTimeout); err != nil {
			return err
		}
	}
	if n := c.Notifier; n != nil {
		for path, raw := range map[string]string{
			"notifier.retry_base":      n.RetryBase,
			"notifier.retry_max_delay": n.RetryMaxDelay,
			"notifier.dedup_window":    n.DedupWindow,
		} {
			if _, err := ParseDurationField(path, raw); err != nil {
				return err
			}
		}
		if n.Workers < 0 || n.QueueSize < 0 || n.RatePerSec < 0 || n.RetryMax < 0 {
			return errors.New("notifier: numeric fields must be >= 0")
		}
	}
	if s := c.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "sqlite", "sqlite3", "memory":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", s.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			return err
		}
	}
	return c.Fridge.validate()
}

func (f FridgeConfig) validate() error {
	if _, err := ParseDurationField("fridge.notify_period", f.NotifyPeriod); err != nil {
		return err
	}
	if _, err := ParseDurationField("fridge.nightly_period", f.NightlyPeriod); err != nil {
		return err
	}
	if f.NightlyAt != "" {
		h, _, err := ParseClock("fridge.nightly_at", f.NightlyAt)
		if err != nil {
			return err
		}
		if h < NightlyEarliestHour {
			return fmt.Errorf("fridge.nightly_at: %s is before %02d:00, when nightly reminders start", f.NightlyAt, NightlyEarliestHour)
		}
	}
	for path, p := range map[string]*int{"fridge.awake_from_hour": f.AwakeFromHour, "fridge.awake_until_hour": f.AwakeUntilHour} {
		if p != nil && (*p < 0 || *p > 24) {
			return fmt.Errorf("%s: hour must be within 0..24", path)
		}
	}
	if from, until := intOr(f.AwakeFromHour, DefaultAwakeFromHour), intOr(f.AwakeUntilHour, DefaultAwakeUntilHour); from >= until {
		return fmt.Errorf("fridge: awake_from_hour (%d) must be before awake_until_hour (%d)", from, until)
	}
	if f.ExpiringDays != nil && *f.ExpiringDays < 0 {
		return errors.New("fridge.expiring_days must be >= 0")
	}
	if f.RadiusMeters < 0 {
		return errors.New("fridge.radius_meters must be >= 0")
	}
	loc := f.Location
	if (loc.Lat == nil) != (loc.Lon == nil) {
		return errors.New("fridge.location: lat and lon must be set together")
	}
	if loc.Lat != nil && (*loc.Lat < -90 || *loc.Lat > 90 || *loc.Lon < -180 || *loc.Lon > 180) {
		return errors.New("fridge.location: coordinates out of range")
	}
	return nil
}
