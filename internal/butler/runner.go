package butler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"fridge/internal/eventbus"
	"fridge/internal/fridge"
	"fridge/internal/notify"
	"fridge/internal/preferences"
	logx "fridge/pkg/logx"
)

// Result is the outcome of one runner pass.
type Result int

const (
	Success Result = iota
	Failure
	Cancelled
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Failed reports whether the scheduler should see the pass as failed.
// Cancelled counts as failed.
func (r Result) Failed() bool { return r != Success }

// Params is what a trigger hands a runner.
type Params struct {
	Force bool
	// Now overrides the clock; zero means the runner's clock.
	Now time.Time
}

// Data is the read side of storage the runners need.
type Data interface {
	ListEntries(ctx context.Context) ([]fridge.Entry, error)
	ListItems(ctx context.Context, entryID string) ([]fridge.Item, error)
	ListStores(ctx context.Context) ([]fridge.NearbyStore, error)
	ListZones(ctx context.Context) ([]fridge.NearbyZone, error)
}

// Deps are shared by every runner.
type Deps struct {
	Data    Data
	Prefs   preferences.Preferences
	Handler notify.Handler
	Log     logx.Logger
	Bus     eventbus.Bus
	Clock   func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// ResultEvent is published on the bus after every pass.
type ResultEvent struct {
	Runner string
	Result Result
	Force  bool
	Took   time.Duration
	Err    error
}

// Work is a runner's body.
type Work func(ctx context.Context, p Params) error

// BaseRunner turns a Work into a pass with a Result. Panics become Failure,
// context cancellation becomes Cancelled, and the Reschedule hook runs after
// every pass.
type BaseRunner struct {
	Name       string
	Work       Work
	Reschedule func(Result)

	deps Deps
	log  logx.Logger
}

func newBaseRunner(name string, deps Deps, work Work) *BaseRunner {
	return &BaseRunner{
		Name: name,
		Work: work,
		deps: deps,
		log:  deps.Log.With(logx.String("runner", name)),
	}
}

func (r *BaseRunner) Run(ctx context.Context, p Params) (res Result) {
	if p.Now.IsZero() {
		p.Now = r.deps.now()
	}
	start := time.Now()
	var err error
	defer func() {
		if rec := recover(); rec != nil {
			res = Failure
			err = fmt.Errorf("panic: %v", rec)
			r.log.Error("runner panic", logx.Any("panic", rec), logx.String("stack", string(debug.Stack())))
		}
		took := time.Since(start)
		switch res {
		case Success:
			r.log.Debug("runner done", logx.Bool("force", p.Force), logx.Duration("took", took))
		case Cancelled:
			r.log.Info("runner cancelled", logx.Duration("took", took), logx.Err(err))
		default:
			r.log.Warn("runner failed", logx.Duration("took", took), logx.Err(err))
		}
		if r.deps.Bus != nil {
			r.deps.Bus.Publish(eventbus.Event{
				Type: eventbus.TypeRunnerResult,
				Time: time.Now(),
				Data: ResultEvent{Runner: r.Name, Result: res, Force: p.Force, Took: took, Err: err},
			})
		}
		if r.Reschedule != nil {
			r.Reschedule(res)
		}
	}()

	if p.Force {
		ctx = notify.WithForce(ctx)
	}
	err = r.Work(ctx, p)
	switch {
	case err == nil:
		return Success
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return Cancelled
	default:
		return Failure
	}
}

// allowed reads the category's last-notified time and applies t.
func (d Deps) allowed(ctx context.Context, t Throttle, cat preferences.Category, p Params, dnd bool) (bool, error) {
	last, err := d.Prefs.LastNotified(ctx, cat)
	if err != nil {
		return false, fmt.Errorf("last notified %s: %w", cat, err)
	}
	return t.Allowed(p.Force, last, p.Now, dnd), nil
}

// notification runs one send in isolation: a failure or panic is logged and
// reported through the return value without touching the other sends.
func (d Deps) notification(ctx context.Context, log logx.Logger, what string, send func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: panic: %v", what, rec)
		}
		if err != nil {
			log.Warn("notification failed", logx.String("what", what), logx.Err(err))
		}
	}()
	if err := send(ctx); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// withFridgeData calls fn for every entry with that entry's items. A failure
// for one entry does not stop the others; all failures are joined.
func withFridgeData(ctx context.Context, data Data, fn func(entry fridge.Entry, items []fridge.Item) error) error {
	entries, err := data.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		items, err := data.ListItems(ctx, e.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("list items %s: %w", e.ID, err))
			continue
		}
		if err := fn(e, items); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
