package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fridge/internal/eventbus"
	logx "fridge/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startEngine(t *testing.T, cfg Config) (*Service, eventbus.Bus) {
	t.Helper()
	cfg.Enabled = true
	bus := eventbus.New()
	s := New(cfg, logx.Nop(), bus)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s, bus
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event, typ string) eventbus.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestEnqueueRunsTask(t *testing.T) {
	s, bus := startEngine(t, Config{Workers: 1})
	events, unsub := bus.Subscribe(16)
	defer unsub()

	require.NoError(t, s.Enqueue(Task{Name: "hello", Run: func(context.Context) error { return nil }}))
	ev := waitEvent(t, events, eventbus.TypeTaskFinished)
	te := ev.Data.(TaskEvent)
	assert.Equal(t, "hello", te.Name)
	assert.Equal(t, 1, te.Attempts)
	assert.NotEmpty(t, te.ID)
}

func TestRetriesUntilSuccess(t *testing.T) {
	s, bus := startEngine(t, Config{Workers: 1})
	events, unsub := bus.Subscribe(16)
	defer unsub()

	var calls atomic.Int32
	err := s.Enqueue(Task{
		Name: "flaky",
		Opt:  TaskOptions{RetryMax: 3, RetryBase: time.Millisecond, RetryMaxDelay: 2 * time.Millisecond},
		Run: func(context.Context) error {
			if calls.Add(1) < 3 {
				return errors.New("not yet")
			}
			return nil
		},
	})
	require.NoError(t, err)
	te := waitEvent(t, events, eventbus.TypeTaskFinished).Data.(TaskEvent)
	assert.Equal(t, 3, te.Attempts)
}

func TestNoRetryStopsImmediately(t *testing.T) {
	s, bus := startEngine(t, Config{Workers: 1})
	events, unsub := bus.Subscribe(16)
	defer unsub()

	var calls atomic.Int32
	require.NoError(t, s.Enqueue(Task{
		Name: "permanent",
		Opt:  TaskOptions{RetryMax: 5, RetryBase: time.Millisecond},
		Run: func(context.Context) error {
			calls.Add(1)
			return NoRetry(errors.New("bad row"))
		},
	}))
	te := waitEvent(t, events, eventbus.TypeTaskFailed).Data.(TaskEvent)
	assert.Equal(t, "bad row", te.Error)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPanicBecomesFailure(t *testing.T) {
	s, bus := startEngine(t, Config{Workers: 1, RetryMax: -1})
	events, unsub := bus.Subscribe(16)
	defer unsub()

	require.NoError(t, s.Enqueue(Task{Name: "boom", Run: func(context.Context) error { panic("nope") }}))
	te := waitEvent(t, events, eventbus.TypeTaskFailed).Data.(TaskEvent)
	assert.Contains(t, te.Error, "panic: nope")

	// The worker survives and keeps draining the queue.
	require.NoError(t, s.Enqueue(Task{Name: "after", Run: func(context.Context) error { return nil }}))
	waitEvent(t, events, eventbus.TypeTaskFinished)
}

func TestOverlapSkip(t *testing.T) {
	s, _ := startEngine(t, Config{Workers: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Enqueue(Task{Name: "fridge.items", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started

	err := s.Enqueue(Task{Name: "fridge.items", Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrOverlapSkip)

	// A different name is independent.
	require.NoError(t, s.Enqueue(Task{Name: "fridge.nightly", Run: func(context.Context) error { return nil }}))
	close(release)

	// The name frees up once the run finishes.
	require.Eventually(t, func() bool {
		return s.Enqueue(Task{Name: "fridge.items", Run: func(context.Context) error { return nil }}) == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDisabledAndStopped(t *testing.T) {
	s := New(Config{}, logx.Nop(), nil)
	assert.ErrorIs(t, s.Enqueue(Task{Name: "x", Run: func(context.Context) error { return nil }}), ErrDisabled)

	s = New(Config{Enabled: true}, logx.Nop(), nil)
	assert.ErrorIs(t, s.Enqueue(Task{Name: "x", Run: func(context.Context) error { return nil }}), ErrStopped)
	assert.Error(t, s.Enqueue(Task{Name: "", Run: func(context.Context) error { return nil }}))
}

func TestBackoffDelayBounded(t *testing.T) {
	opt := TaskOptions{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second, RetryJitter: 0.2}
	for retry := 1; retry < 10; retry++ {
		d := backoffDelay(opt, retry)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}
