package scheduler

import (
	"context"
	"sync"
	"time"

	"fridge/internal/eventbus"
	"fridge/internal/task/engine"
	logx "fridge/pkg/logx"

	"github.com/robfig/cron/v3"
)

// Config controls the scheduler (trigger) service.
type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Europe/Berlin"
}

type HistoryItem = engine.HistoryItem

// Job is the work a trigger enqueues.
type Job func(ctx context.Context) error

type scheduleDef struct {
	name          string
	spec          string // cron spec or @every
	timeout       time.Duration
	job           Job
	entryID       cron.EntryID
	startupSpread time.Duration
}

// onceDef is a one-shot trigger. The timer is runtime state; the rest
// survives Stop/Start so pending one-shots resume.
type onceDef struct {
	at      time.Time
	timeout time.Duration
	job     Job
	ver     uint64
	timer   *time.Timer
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location
	bus eventbus.Bus

	engine *engine.Service

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	enqMu       sync.Mutex
	lastEnqWarn map[string]time.Time

	tmu     sync.Mutex
	once    map[string]*onceDef
	onceSeq uint64
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
	Once    bool
}

type Snapshot struct {
	Enabled  bool
	Timezone string

	Workers        int
	InFlight       int
	QueueLen       int
	QueueCap       int
	Dropped        uint64
	DefaultTimeout time.Duration
	RetryMax       int

	Schedules []ScheduleInfo
	History   []HistoryItem
}
