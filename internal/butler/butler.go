package butler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fridge/internal/location"
	"fridge/internal/task/engine"
	"fridge/internal/task/scheduler"
	logx "fridge/pkg/logx"
)

// Kind names a reminder chain.
type Kind string

const (
	KindItems    Kind = "items"
	KindLocation Kind = "location"
	KindNightly  Kind = "nightly"
)

// Kinds lists every reminder chain.
var Kinds = []Kind{KindItems, KindLocation, KindNightly}

// ParseKind accepts a chain name as typed on the command line.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Kinds {
		if k == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown reminder %q (want items, location or nightly)", s)
}

// JobName is the unique scheduler name of a chain.
func (k Kind) JobName() string { return "fridge." + string(k) }

const WatchdogJob = "fridge.watchdog"

// Scheduler is the slice of the task scheduler the butler drives.
type Scheduler interface {
	AddOnce(name string, at time.Time, timeout time.Duration, job scheduler.Job) (string, error)
	AddSchedule(name, schedule string, timeout time.Duration, job scheduler.Job) (string, error)
	Pending(name string) (time.Time, bool)
	Remove(name string) bool
	NextRun(schedule string, from time.Time) (time.Time, error)
}

// Config is the reminder cadence and throttle policy.
type Config struct {
	// ItemSchedule and LocationSchedule take the scheduler's formats ("2h", "00:30", cron).
	ItemSchedule     string
	LocationSchedule string
	// NightlyAt is HH:MM.
	NightlyAt string

	NotifyPeriod  time.Duration
	NightlyPeriod time.Duration
	DND           *DNDWindow // nil means DefaultDND
	RadiusMeters  float64

	// Timeout bounds a single pass.
	Timeout time.Duration
	// Watchdog is how often missing chains are re-armed.
	Watchdog string
}

func (c Config) withDefaults() Config {
	if c.ItemSchedule == "" {
		c.ItemSchedule = "2h"
	}
	if c.LocationSchedule == "" {
		c.LocationSchedule = "1h"
	}
	if c.NightlyAt == "" {
		c.NightlyAt = "20:00"
	}
	if c.NotifyPeriod <= 0 {
		c.NotifyPeriod = 2 * time.Hour
	}
	if c.NightlyPeriod <= 0 {
		c.NightlyPeriod = 12 * time.Hour
	}
	if c.DND == nil {
		dnd := DefaultDND
		c.DND = &dnd
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.Watchdog == "" {
		c.Watchdog = "@every 15m"
	}
	return c
}

// nightlyCron turns HH:MM into a daily cron spec.
func nightlyCron(at string) (string, error) {
	var h, m int
	if _, err := fmt.Sscanf(at, "%d:%d", &h, &m); err != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return "", fmt.Errorf("invalid nightly time %q (want HH:MM)", at)
	}
	return fmt.Sprintf("cron:%d %d * * *", m, h), nil
}

type runner interface {
	Run(ctx context.Context, p Params) Result
}

// chain is one self-rescheduling reminder. run and armed are guarded by
// Butler.mu; mu serializes passes.
type chain struct {
	kind  Kind
	run   runner
	armed bool
	mu    sync.Mutex
}

// Butler owns the three reminder chains.
type Butler struct {
	mu     sync.Mutex
	cfg    Config
	sched  Scheduler
	deps   Deps
	log    logx.Logger
	chains map[Kind]*chain
}

func New(cfg Config, sched Scheduler, deps Deps, provider location.Provider) *Butler {
	cfg = cfg.withDefaults()
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	b := &Butler{
		cfg:    cfg,
		sched:  sched,
		deps:   deps,
		log:    deps.Log.With(logx.String("comp", "butler")),
		chains: map[Kind]*chain{},
	}
	b.build(provider)
	return b
}

// build (re)creates the runners from b.cfg. Callers hold b.mu or own b.
func (b *Butler) build(provider location.Provider) {
	cfg := b.cfg
	notify := Throttle{Period: cfg.NotifyPeriod, DND: *cfg.DND}
	nightly := Throttle{Period: cfg.NightlyPeriod, DND: *cfg.DND}

	items := NewItemRunner(b.deps, notify)
	loc := NewLocationRunner(b.deps, notify, cfg.RadiusMeters, provider)
	night := NewNightlyRunner(b.deps, nightly)

	for k, base := range map[Kind]*BaseRunner{KindItems: items.BaseRunner, KindLocation: loc.BaseRunner, KindNightly: night.BaseRunner} {
		k := k
		base.Reschedule = func(Result) { b.rearm(k) }
		c := b.chains[k]
		if c == nil {
			c = &chain{kind: k}
			b.chains[k] = c
		}
		c.run = base
	}
}

// Apply swaps in a new config. Armed chains are re-armed on the new cadence.
func (b *Butler) Apply(cfg Config, provider location.Provider) {
	b.mu.Lock()
	b.cfg = cfg.withDefaults()
	b.build(provider)
	var armed []Kind
	for _, k := range Kinds {
		if b.chains[k].armed {
			armed = append(armed, k)
		}
	}
	b.mu.Unlock()

	for _, k := range armed {
		if err := b.schedule(k, Params{}); err != nil {
			b.log.Warn("re-arm after reload failed", logx.String("kind", string(k)), logx.Err(err))
		}
	}
}

// Start arms every chain and the watchdog.
func (b *Butler) Start() error {
	var errs []error
	if err := b.RemindItems(Params{}); err != nil {
		errs = append(errs, err)
	}
	if err := b.RemindLocation(Params{}); err != nil {
		errs = append(errs, err)
	}
	if err := b.ScheduleRemindNightly(Params{}); err != nil {
		errs = append(errs, err)
	}
	if err := b.ensureWatchdog(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RemindItems arms the items chain. Force runs it right away, bypassing the
// resend period.
func (b *Butler) RemindItems(p Params) error { return b.arm(KindItems, p) }

// RemindLocation arms the location chain.
func (b *Butler) RemindLocation(p Params) error { return b.arm(KindLocation, p) }

// ScheduleRemindNightly arms the nightly chain at the next NightlyAt.
func (b *Butler) ScheduleRemindNightly(p Params) error { return b.arm(KindNightly, p) }

func (b *Butler) CancelItemsReminder()    { b.cancel(KindItems) }
func (b *Butler) CancelLocationReminder() { b.cancel(KindLocation) }
func (b *Butler) CancelNightlyReminder()  { b.cancel(KindNightly) }

// CancelAll disarms every chain and the watchdog.
func (b *Butler) CancelAll() {
	for _, k := range Kinds {
		b.cancel(k)
	}
	b.sched.Remove(WatchdogJob)
}

// Next returns when a chain fires next.
func (b *Butler) Next(k Kind) (time.Time, bool) {
	return b.sched.Pending(k.JobName())
}

// RunNow runs a pass synchronously. The pass is serialized with scheduled
// passes of the same chain; an armed chain is re-armed afterwards.
func (b *Butler) RunNow(ctx context.Context, k Kind, force bool) (Result, error) {
	c := b.chain(k)
	if c == nil {
		return Failure, fmt.Errorf("unknown reminder %q", k)
	}
	return b.pass(ctx, c, Params{Force: force}), nil
}

func (b *Butler) chain(k Kind) *chain {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chains[k]
}

func (b *Butler) pass(ctx context.Context, c *chain, p Params) Result {
	b.mu.Lock()
	r := c.run
	b.mu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	return r.Run(ctx, p)
}

func (b *Butler) arm(k Kind, p Params) error {
	b.mu.Lock()
	c := b.chains[k]
	c.armed = true
	b.mu.Unlock()
	return b.schedule(k, p)
}

func (b *Butler) cancel(k Kind) {
	b.mu.Lock()
	b.chains[k].armed = false
	b.mu.Unlock()
	if b.sched.Remove(k.JobName()) {
		b.log.Info("reminder cancelled", logx.String("kind", string(k)))
	}
}

// rearm is the deferred hook of every pass.
func (b *Butler) rearm(k Kind) {
	b.mu.Lock()
	armed := b.chains[k].armed
	b.mu.Unlock()
	if !armed {
		return
	}
	if err := b.schedule(k, Params{}); err != nil {
		b.log.Error("reschedule failed", logx.String("kind", string(k)), logx.Err(err))
	}
}

// NextAt computes when a chain should fire after now.
func (b *Butler) NextAt(k Kind, now time.Time) (time.Time, error) {
	b.mu.Lock()
	cfg := b.cfg
	b.mu.Unlock()
	switch k {
	case KindItems:
		return b.sched.NextRun(cfg.ItemSchedule, now)
	case KindLocation:
		return b.sched.NextRun(cfg.LocationSchedule, now)
	case KindNightly:
		spec, err := nightlyCron(cfg.NightlyAt)
		if err != nil {
			return time.Time{}, err
		}
		return b.sched.NextRun(spec, now)
	default:
		return time.Time{}, fmt.Errorf("unknown reminder %q", k)
	}
}

func (b *Butler) schedule(k Kind, p Params) error {
	b.mu.Lock()
	timeout := b.cfg.Timeout
	b.mu.Unlock()

	now := b.deps.Clock()
	at := now
	if !p.Force {
		next, err := b.NextAt(k, now)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		at = next
	}
	if _, err := b.sched.AddOnce(k.JobName(), at, timeout, b.job(k, p)); err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	b.log.Debug("reminder armed", logx.String("kind", string(k)), logx.Time("at", at), logx.Bool("force", p.Force))
	return nil
}

func (b *Butler) job(k Kind, p Params) scheduler.Job {
	return func(ctx context.Context) error {
		c := b.chain(k)
		// A forced trigger applies to its own pass only.
		res := b.pass(ctx, c, Params{Force: p.Force})
		if res.Failed() {
			// The chain has already re-armed; engine retries would double up.
			return engine.NoRetry(fmt.Errorf("%s pass %s", k, res))
		}
		return nil
	}
}

func (b *Butler) ensureWatchdog() error {
	b.mu.Lock()
	spec := b.cfg.Watchdog
	b.mu.Unlock()
	_, err := b.sched.AddSchedule(WatchdogJob, spec, 30*time.Second, func(context.Context) error {
		b.Ensure()
		return nil
	})
	return err
}

// Ensure re-arms every armed chain that has no pending trigger and is not
// mid-pass. It returns the chains it re-armed.
func (b *Butler) Ensure() []Kind {
	var fixed []Kind
	for _, k := range Kinds {
		c := b.chain(k)
		b.mu.Lock()
		armed := c.armed
		b.mu.Unlock()
		if !armed {
			continue
		}
		if _, ok := b.sched.Pending(k.JobName()); ok {
			continue
		}
		if !c.mu.TryLock() {
			continue
		}
		c.mu.Unlock()
		if err := b.schedule(k, Params{}); err != nil {
			b.log.Warn("watchdog re-arm failed", logx.String("kind", string(k)), logx.Err(err))
			continue
		}
		fixed = append(fixed, k)
	}
	if len(fixed) > 0 {
		b.log.Warn("watchdog re-armed reminders", logx.Int("count", len(fixed)))
	}
	return fixed
}
