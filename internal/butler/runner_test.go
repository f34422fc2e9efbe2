package butler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fridge/internal/eventbus"
	"fridge/internal/fridge"
	"fridge/internal/location"
	"fridge/internal/notify"
	"fridge/internal/preferences"
	"fridge/internal/storage"
	logx "fridge/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var home = fridge.Point{Lat: 52.52, Lon: 13.405}

func at(hour int) time.Time { return time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC) }

type call struct {
	kind  string
	entry string
	items int
	place string
}

type recHandler struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
}

func (h *recHandler) add(c call) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail[c.kind]; err != nil {
		return err
	}
	h.calls = append(h.calls, c)
	return nil
}

func (h *recHandler) byKind(kind string) []call {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []call
	for _, c := range h.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (h *recHandler) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func (h *recHandler) NotifyNeeded(_ context.Context, e fridge.Entry, items []fridge.Item) error {
	return h.add(call{kind: "needed", entry: e.Name, items: len(items)})
}

func (h *recHandler) NotifyExpiring(_ context.Context, e fridge.Entry, items []fridge.Item) error {
	return h.add(call{kind: "expiring", entry: e.Name, items: len(items)})
}

func (h *recHandler) NotifyExpired(_ context.Context, e fridge.Entry, items []fridge.Item) error {
	return h.add(call{kind: "expired", entry: e.Name, items: len(items)})
}

func (h *recHandler) NotifyNearby(_ context.Context, s *fridge.NearbyStore, z *fridge.NearbyZone, items []fridge.Item) error {
	if (s == nil) == (z == nil) {
		return notify.ErrStoreZoneExclusive
	}
	place := ""
	if s != nil {
		place = "store:" + s.Name
	} else {
		place = "zone:" + z.Name
	}
	return h.add(call{kind: "nearby", items: len(items), place: place})
}

func (h *recHandler) NotifyNightly(_ context.Context, e fridge.Entry) error {
	return h.add(call{kind: "nightly", entry: e.Name})
}

type fixture struct {
	deps  Deps
	store storage.Store
	prefs *preferences.Store
	h     *recHandler
}

// newFixture seeds a fridge (milk expiring, yogurt expired, bread needed,
// cheese eaten) and a pantry that only needs eggs.
func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctx := context.Background()
	st := storage.NewMemory()
	t.Cleanup(func() { _ = st.Close() })

	fr := fridge.NewEntry("Fridge", now)
	pantry := fridge.NewEntry("Pantry", now)
	require.NoError(t, st.PutEntry(ctx, fr))
	require.NoError(t, st.PutEntry(ctx, pantry))

	cheese, err := fridge.NewItem(fr.ID, "cheese", fridge.Have, now).WithExpireTime(now.AddDate(0, 0, -5)).Consume(now)
	require.NoError(t, err)
	for _, it := range []fridge.Item{
		fridge.NewItem(fr.ID, "milk", fridge.Have, now).WithExpireTime(now.AddDate(0, 0, 1)),
		fridge.NewItem(fr.ID, "yogurt", fridge.Have, now).WithExpireTime(now.AddDate(0, 0, -3)),
		fridge.NewItem(fr.ID, "bread", fridge.Need, now),
		cheese,
		fridge.NewItem(pantry.ID, "eggs", fridge.Need, now),
	} {
		require.NoError(t, st.PutItem(ctx, it))
	}

	prefs := preferences.New(st, preferences.DefaultDefaults())
	h := &recHandler{}
	return &fixture{
		deps:  Deps{Data: st, Prefs: prefs, Handler: h, Log: logx.Nop(), Clock: func() time.Time { return now }},
		store: st,
		prefs: prefs,
		h:     h,
	}
}

func (f *fixture) last(t *testing.T, cat preferences.Category) time.Time {
	t.Helper()
	ts, err := f.prefs.LastNotified(context.Background(), cat)
	require.NoError(t, err)
	return ts
}

func TestThrottleAllowed(t *testing.T) {
	th := Throttle{Period: 2 * time.Hour, DND: DefaultDND}
	last := at(9)

	assert.False(t, th.Allowed(true, time.Time{}, at(6), true), "quiet morning blocks force")
	assert.False(t, th.Allowed(true, time.Time{}, at(22), true), "22:00 is already quiet")
	assert.True(t, th.Allowed(false, time.Time{}, at(7), true), "never notified")
	assert.True(t, th.Allowed(true, last, at(10), true))
	assert.False(t, th.Allowed(false, last, at(11), true), "exactly one period is not enough")
	assert.True(t, th.Allowed(false, last, at(11).Add(time.Second), true))
	assert.True(t, th.Allowed(false, last, at(23), false), "dnd off")
}

func TestBaseRunnerOutcomes(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	var rescheduled []Result
	run := func(ctx context.Context, w Work) Result {
		r := newBaseRunner("test", Deps{Log: logx.Nop(), Bus: bus}, w)
		r.Reschedule = func(res Result) { rescheduled = append(rescheduled, res) }
		return r.Run(ctx, Params{})
	}

	assert.Equal(t, Success, run(context.Background(), func(context.Context, Params) error { return nil }))
	assert.Equal(t, Failure, run(context.Background(), func(context.Context, Params) error { return errors.New("boom") }))
	assert.Equal(t, Failure, run(context.Background(), func(context.Context, Params) error { panic("bad") }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := run(ctx, func(ctx context.Context, _ Params) error { return ctx.Err() })
	assert.Equal(t, Cancelled, res)
	assert.True(t, res.Failed())
	assert.False(t, Success.Failed())

	assert.Equal(t, []Result{Success, Failure, Failure, Cancelled}, rescheduled)

	ev := <-events
	require.Equal(t, eventbus.TypeRunnerResult, ev.Type)
	assert.Equal(t, "test", ev.Data.(ResultEvent).Runner)
}

func TestBaseRunnerFillsNow(t *testing.T) {
	var got time.Time
	r := newBaseRunner("clock", Deps{Log: logx.Nop(), Clock: func() time.Time { return at(12) }}, func(_ context.Context, p Params) error {
		got = p.Now
		return nil
	})
	r.Run(context.Background(), Params{})
	assert.Equal(t, at(12), got)
}

func TestItemRunnerNotifiesEveryEntry(t *testing.T) {
	now := at(10)
	f := newFixture(t, now)
	r := NewItemRunner(f.deps, Throttle{Period: 2 * time.Hour, DND: DefaultDND})

	require.Equal(t, Success, r.Run(context.Background(), Params{Now: now}))

	needed := f.h.byKind("needed")
	require.Len(t, needed, 2, "throttle is read once, so both entries hear about it")
	assert.ElementsMatch(t, []string{"Fridge", "Pantry"}, []string{needed[0].entry, needed[1].entry})
	assert.Equal(t, []call{{kind: "expiring", entry: "Fridge", items: 1}}, f.h.byKind("expiring"))
	assert.Equal(t, []call{{kind: "expired", entry: "Fridge", items: 1}}, f.h.byKind("expired"))

	for _, cat := range []preferences.Category{preferences.Needed, preferences.Expiring, preferences.Expired} {
		assert.True(t, f.last(t, cat).Equal(now), cat)
	}
	assert.True(t, f.last(t, preferences.Nearby).IsZero())
}

func TestItemRunnerThrottles(t *testing.T) {
	f := newFixture(t, at(10))
	r := NewItemRunner(f.deps, Throttle{Period: 2 * time.Hour, DND: DefaultDND})
	ctx := context.Background()

	r.Run(ctx, Params{Now: at(10)})
	n := f.h.total()
	require.Equal(t, 4, n)

	r.Run(ctx, Params{Now: at(11)})
	assert.Equal(t, n, f.h.total(), "inside the resend period")

	r.Run(ctx, Params{Now: at(11), Force: true})
	assert.Equal(t, 2*n, f.h.total(), "force skips the period")

	r.Run(ctx, Params{Now: at(23), Force: true})
	assert.Equal(t, 2*n, f.h.total(), "force does not beat quiet hours")

	require.NoError(t, f.prefs.Set(ctx, preferences.KeyDNDEnabled, "false"))
	r.Run(ctx, Params{Now: at(23)})
	assert.Equal(t, 3*n, f.h.total())
}

func TestItemRunnerIsolatesFailures(t *testing.T) {
	f := newFixture(t, at(10))
	f.h.fail = map[string]error{"expiring": errors.New("queue full")}
	r := NewItemRunner(f.deps, Throttle{Period: time.Hour, DND: DefaultDND})

	assert.Equal(t, Failure, r.Run(context.Background(), Params{Now: at(10)}))
	assert.Len(t, f.h.byKind("needed"), 2)
	assert.Len(t, f.h.byKind("expired"), 1)
	assert.True(t, f.last(t, preferences.Expiring).IsZero(), "a failed category keeps its old timestamp")
	assert.True(t, f.last(t, preferences.Expired).Equal(at(10)))
}

func TestItemRunnerSameDayPolicy(t *testing.T) {
	now := at(10)
	f := newFixture(t, now)
	ctx := context.Background()
	entry := fridge.NewEntry("Today", now)
	require.NoError(t, f.store.PutEntry(ctx, entry))
	require.NoError(t, f.store.PutItem(ctx, fridge.NewItem(entry.ID, "fish", fridge.Have, now).WithExpireTime(now)))
	require.NoError(t, f.prefs.Set(ctx, preferences.KeySameDayExpired, "true"))

	r := NewItemRunner(f.deps, Throttle{Period: time.Hour, DND: DefaultDND})
	r.Run(ctx, Params{Now: now})

	var entries []string
	for _, c := range f.h.byKind("expired") {
		entries = append(entries, c.entry)
	}
	assert.ElementsMatch(t, []string{"Fridge", "Today"}, entries)
}

func TestNightlyRunner(t *testing.T) {
	f := newFixture(t, at(10))
	r := NewNightlyRunner(f.deps, Throttle{Period: 12 * time.Hour, DND: DefaultDND})
	ctx := context.Background()

	require.Equal(t, Success, r.Run(ctx, Params{Now: at(19), Force: true}))
	assert.Zero(t, f.h.total(), "before 20:00")

	require.Equal(t, Success, r.Run(ctx, Params{Now: at(21)}))
	assert.Equal(t, []call{{kind: "nightly", entry: "Fridge"}}, f.h.byKind("nightly"), "pantry only has NEED items")
	assert.True(t, f.last(t, preferences.Nightly).Equal(at(21)))

	r.Run(ctx, Params{Now: at(21).Add(30 * time.Minute)})
	assert.Len(t, f.h.byKind("nightly"), 1)
}

func TestClosest(t *testing.T) {
	store := fridge.NearbyStore{ID: "s", Name: "corner", Point: fridge.Point{Lat: home.Lat + 0.0045, Lon: home.Lon}}
	zone := fridge.NearbyZone{ID: "z", Name: "market", Points: []fridge.Point{
		{Lat: home.Lat + 0.05, Lon: home.Lon},
		{Lat: home.Lat + 0.0027, Lon: home.Lon},
	}}
	far := fridge.NearbyStore{ID: "f", Name: "far", Point: fridge.Point{Lat: home.Lat + 0.1, Lon: home.Lon}}

	s, z := Closest(home, []fridge.NearbyStore{store, far}, []fridge.NearbyZone{zone}, fridge.GeofenceRadius)
	assert.Nil(t, s)
	require.NotNil(t, z)
	assert.Equal(t, "z", z.ID)

	s, z = Closest(home, []fridge.NearbyStore{store}, nil, fridge.GeofenceRadius)
	require.NotNil(t, s)
	assert.Nil(t, z)

	s, z = Closest(home, []fridge.NearbyStore{far}, nil, fridge.GeofenceRadius)
	assert.Nil(t, s)
	assert.Nil(t, z)
}

func TestLocationRunner(t *testing.T) {
	f := newFixture(t, at(10))
	ctx := context.Background()
	require.NoError(t, f.store.PutStore(ctx, fridge.NearbyStore{ID: "s", Name: "corner", Point: fridge.Point{Lat: home.Lat + 0.0045, Lon: home.Lon}}))
	require.NoError(t, f.store.PutZone(ctx, fridge.NearbyZone{ID: "z", Name: "market", Points: []fridge.Point{{Lat: home.Lat + 0.0027, Lon: home.Lon}}}))
	th := Throttle{Period: time.Hour, DND: DefaultDND}

	none := NewLocationRunner(f.deps, th, 0, location.None{})
	assert.Equal(t, Success, none.Run(ctx, Params{Now: at(10)}))
	assert.Zero(t, f.h.total())

	r := NewLocationRunner(f.deps, th, 0, location.Static{Point: home})
	require.Equal(t, Success, r.Run(ctx, Params{Now: at(10)}))
	assert.Equal(t, []call{{kind: "nearby", items: 2, place: "zone:market"}}, f.h.byKind("nearby"))
	assert.True(t, f.last(t, preferences.Nearby).Equal(at(10)))

	r.Run(ctx, Params{Now: at(10).Add(10 * time.Minute)})
	assert.Len(t, f.h.byKind("nearby"), 1)

	away := NewLocationRunner(f.deps, th, 0, location.Static{Point: fridge.Point{Lat: 48.1, Lon: 11.6}})
	away.Run(ctx, Params{Now: at(15), Force: true})
	assert.Len(t, f.h.byKind("nearby"), 1)
}
