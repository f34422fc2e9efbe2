package butler

import (
	"context"
	"sync"
	"testing"
	"time"

	"fridge/internal/location"
	"fridge/internal/preferences"
	"fridge/internal/task/engine"
	"fridge/internal/task/scheduler"
	logx "fridge/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type armed struct {
	at  time.Time
	job scheduler.Job
}

// fakeSched records triggers instead of running timers. NextRun comes from a
// real, never-started scheduler.
type fakeSched struct {
	mu    sync.Mutex
	once  map[string]armed
	cron  map[string]string
	clock *scheduler.Service
}

func newFakeSched() *fakeSched {
	return &fakeSched{
		once:  map[string]armed{},
		cron:  map[string]string{},
		clock: scheduler.New(scheduler.Config{Timezone: "UTC"}, nil, logx.Nop(), nil),
	}
}

func (f *fakeSched) AddOnce(name string, at time.Time, _ time.Duration, job scheduler.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.once[name] = armed{at: at, job: job}
	return name, nil
}

func (f *fakeSched) AddSchedule(name, spec string, _ time.Duration, _ scheduler.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cron[name] = spec
	return name, nil
}

func (f *fakeSched) Pending(name string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.once[name]
	return a.at, ok
}

func (f *fakeSched) Remove(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, a := f.once[name]
	_, b := f.cron[name]
	delete(f.once, name)
	delete(f.cron, name)
	return a || b
}

func (f *fakeSched) NextRun(schedule string, from time.Time) (time.Time, error) {
	return f.clock.NextRun(schedule, from)
}

// take removes a one-shot the way a firing timer does and returns its job.
func (f *fakeSched) take(t *testing.T, name string) scheduler.Job {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.once[name]
	require.True(t, ok, "%s not armed", name)
	delete(f.once, name)
	return a.job
}

func newTestButler(t *testing.T) (*Butler, *fakeSched, *fixture) {
	f := newFixture(t, at(10))
	s := newFakeSched()
	b := New(Config{ItemSchedule: "2h", LocationSchedule: "30m", NightlyAt: "20:30"}, s, f.deps, location.Static{Point: home})
	return b, s, f
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Items ")
	require.NoError(t, err)
	assert.Equal(t, KindItems, k)
	assert.Equal(t, "fridge.items", k.JobName())
	_, err = ParseKind("weekly")
	assert.Error(t, err)
}

func TestConfigDefaultsOnlyAbsentDND(t *testing.T) {
	assert.Equal(t, DefaultDND, *Config{}.withDefaults().DND)

	allDay := DNDWindow{Start: 0, End: 24}
	c := Config{DND: &allDay}.withDefaults()
	assert.Equal(t, allDay, *c.DND)
	assert.False(t, c.DND.Quiet(at(3)))
}

func TestStartArmsEveryChain(t *testing.T) {
	b, s, _ := newTestButler(t)
	require.NoError(t, b.Start())

	next, ok := b.Next(KindItems)
	require.True(t, ok)
	assert.Equal(t, at(12), next)
	next, _ = b.Next(KindLocation)
	assert.Equal(t, at(10).Add(30*time.Minute), next)
	next, _ = b.Next(KindNightly)
	assert.Equal(t, at(20).Add(30*time.Minute), next)
	assert.Equal(t, "@every 15m", s.cron[WatchdogJob])
}

func TestPassReschedulesItself(t *testing.T) {
	b, s, f := newTestButler(t)
	require.NoError(t, b.RemindItems(Params{Force: true}))

	next, ok := b.Next(KindItems)
	require.True(t, ok)
	assert.Equal(t, at(10), next, "forced reminders fire now")

	require.NoError(t, s.take(t, KindItems.JobName())(context.Background()))
	assert.Len(t, f.h.byKind("needed"), 2)

	next, ok = b.Next(KindItems)
	require.True(t, ok, "the pass re-armed its chain")
	assert.Equal(t, at(12), next)
}

func TestFailedPassStillReschedules(t *testing.T) {
	b, s, f := newTestButler(t)
	f.h.fail = map[string]error{"needed": assert.AnError}
	require.NoError(t, b.RemindItems(Params{}))

	err := s.take(t, KindItems.JobName())(context.Background())
	require.Error(t, err)
	assert.True(t, engine.IsNoRetry(err))

	_, ok := b.Next(KindItems)
	assert.True(t, ok)
}

func TestCancelStopsTheChain(t *testing.T) {
	b, s, _ := newTestButler(t)
	require.NoError(t, b.Start())

	job := s.take(t, KindLocation.JobName())
	s.AddOnce(KindLocation.JobName(), at(11), 0, job)
	b.CancelLocationReminder()
	_, ok := b.Next(KindLocation)
	require.False(t, ok)

	// A pass already in flight when the chain was cancelled must not re-arm it.
	require.NoError(t, job(context.Background()))
	_, ok = b.Next(KindLocation)
	assert.False(t, ok)

	b.CancelAll()
	for _, k := range Kinds {
		_, ok := b.Next(k)
		assert.False(t, ok, k)
	}
	assert.NotContains(t, s.cron, WatchdogJob)
}

func TestEnsureRearmsMissingChains(t *testing.T) {
	b, s, _ := newTestButler(t)
	require.NoError(t, b.Start())
	b.CancelNightlyReminder()

	s.Remove(KindItems.JobName())
	assert.Equal(t, []Kind{KindItems}, b.Ensure(), "cancelled chains stay cancelled")
	_, ok := b.Next(KindItems)
	assert.True(t, ok)
	assert.Empty(t, b.Ensure())
}

func TestRunNow(t *testing.T) {
	b, s, f := newTestButler(t)

	res, err := b.RunNow(context.Background(), KindNightly, true)
	require.NoError(t, err)
	assert.Equal(t, Success, res)
	assert.Empty(t, f.h.byKind("nightly"), "10:00 is too early for the nightly check")

	res, err = b.RunNow(context.Background(), KindItems, false)
	require.NoError(t, err)
	assert.Equal(t, Success, res)
	assert.Len(t, f.h.byKind("expired"), 1)
	assert.Empty(t, s.once, "an unarmed chain is not rescheduled")
}

func TestApplyRearmsOnNewCadence(t *testing.T) {
	b, _, _ := newTestButler(t)
	require.NoError(t, b.RemindItems(Params{}))
	b.Apply(Config{ItemSchedule: "4h"}, nil)

	next, ok := b.Next(KindItems)
	require.True(t, ok)
	assert.Equal(t, at(14), next)
	_, ok = b.Next(KindLocation)
	assert.False(t, ok)
}

func TestButlerWithRealScheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()
	f := newFixture(t, now)
	f.deps.Clock = time.Now
	require.NoError(t, f.prefs.Set(ctx, preferences.KeyDNDEnabled, "false"))

	eng := engine.New(engine.Config{Enabled: true}, logx.Nop(), nil)
	eng.Start(ctx)
	defer eng.Stop(context.Background())
	sched := scheduler.New(scheduler.Config{Enabled: true}, eng, logx.Nop(), nil)
	sched.Start(ctx)
	defer sched.Stop(context.Background())

	b := New(Config{ItemSchedule: "2h"}, sched, f.deps, nil)
	require.NoError(t, b.RemindItems(Params{Force: true}))

	require.Eventually(t, func() bool { return len(f.h.byKind("needed")) == 2 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		next, ok := b.Next(KindItems)
		return ok && next.After(now.Add(time.Hour))
	}, 5*time.Second, 10*time.Millisecond)

	ts, err := f.prefs.LastNotified(ctx, preferences.Needed)
	require.NoError(t, err)
	assert.False(t, ts.IsZero())
}
