package config

// Config is the on-disk daemon configuration.
//
// JSON, YAML and TOML are accepted; all of them are decoded through the strict JSON
// decoder so unknown keys are rejected in every format.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Scheduler controls trigger behavior (cron/interval/once).
	Scheduler SchedulerConfig `json:"scheduler"`

	// TaskEngine controls execution settings for scheduled runners.
	TaskEngine *TaskEngineConfig `json:"task_engine,omitempty"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`

	Fridge FridgeConfig `json:"fridge"`
}

// TelegramConfig selects the Telegram transport. With an empty token, notifications
// are written to the log instead.
type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// Trigger timezone (IANA, e.g. "Europe/Berlin"). Empty means Local.
	Timezone string `json:"timezone,omitempty"`
}

// TaskEngineConfig controls the task execution engine.
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 64
//   - default_timeout: "0s" (disabled)
//   - history_size: 200
//   - retry_max: 0 (runners reschedule themselves instead of retrying)
type TaskEngineConfig struct {
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
	RetryMax       int    `json:"retry_max,omitempty"`
}

// NotifierConfig controls the async notification pipeline.
//
// If the whole section is omitted, the notifier defaults to enabled=true.
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
	PersistDedup    bool   `json:"persist_dedup,omitempty"`
}

// StorageConfig controls persistence.
//
// Example:
//
//	storage:
//	  driver: sqlite
//	  path: ./fridge.db
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// FridgeConfig holds the reminder cadence and notification policy.
//
// Pointer fields distinguish "omitted" (use default) from an explicit zero value.
type FridgeConfig struct {
	// Schedules accept the scheduler's forms: "2h", "02:00", or a cron expression.
	ItemSchedule     string `json:"item_schedule,omitempty"`
	LocationSchedule string `json:"location_schedule,omitempty"`
	// NightlyAt is HH:MM in the scheduler timezone, no earlier than
	// NightlyEarliestHour.
	NightlyAt string `json:"nightly_at,omitempty"`

	NotifyPeriod  string `json:"notify_period,omitempty"`
	NightlyPeriod string `json:"nightly_period,omitempty"`

	// With do-not-disturb on, reminders only go out in the awake hours
	// [AwakeFromHour, AwakeUntilHour), 7 to 22 unless set.
	DNDEnabled     *bool `json:"dnd_enabled,omitempty"`
	AwakeFromHour  *int  `json:"awake_from_hour,omitempty"`
	AwakeUntilHour *int  `json:"awake_until_hour,omitempty"`

	ExpiringDays   *int  `json:"expiring_days,omitempty"`
	SameDayExpired *bool `json:"same_day_expired,omitempty"`

	RadiusMeters float64        `json:"radius_meters,omitempty"`
	Location     LocationConfig `json:"location"`
	OverpassURL  string         `json:"overpass_url,omitempty"`
}

// LocationConfig configures where the daemon believes the household currently is.
// File (when set) wins over the static coordinates and is re-read on every run.
type LocationConfig struct {
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
	File string   `json:"file,omitempty"`
}
