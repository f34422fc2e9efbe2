package butler

import (
	"context"
	"errors"

	"fridge/internal/fridge"
	"fridge/internal/preferences"
	logx "fridge/pkg/logx"
)

// NightlyHour is the earliest hour the nightly cleanup reminder goes out.
const NightlyHour = 20

// NightlyRunner reminds the owner, once per evening, to check every entry
// that still holds something.
type NightlyRunner struct {
	*BaseRunner
	throttle Throttle
}

func NewNightlyRunner(deps Deps, t Throttle) *NightlyRunner {
	r := &NightlyRunner{throttle: t}
	r.BaseRunner = newBaseRunner("nightly", deps, r.work)
	return r
}

func (r *NightlyRunner) work(ctx context.Context, p Params) error {
	if p.Now.Hour() < NightlyHour {
		r.log.Debug("nightly too early", logx.Int("hour", p.Now.Hour()))
		return nil
	}
	d := r.deps
	dnd, err := d.Prefs.DNDEnabled(ctx)
	if err != nil {
		return err
	}
	ok, err := d.allowed(ctx, r.throttle, preferences.Nightly, p, dnd)
	if err != nil || !ok {
		return err
	}

	fired := 0
	var sendErrs []error
	err = withFridgeData(ctx, d.Data, func(entry fridge.Entry, items []fridge.Item) error {
		if !fridge.HasLiveHave(items) {
			return nil
		}
		if err := d.notification(ctx, r.log, "nightly "+entry.ID, func(ctx context.Context) error {
			return d.Handler.NotifyNightly(ctx, entry)
		}); err != nil {
			sendErrs = append(sendErrs, err)
			return nil
		}
		fired++
		return nil
	})
	if fired > 0 {
		if merr := d.Prefs.MarkNotified(ctx, preferences.Nightly, p.Now); merr != nil {
			sendErrs = append(sendErrs, merr)
		}
		r.log.Info("nightly reminders sent", logx.Int("entries", fired))
	}
	return errors.Join(err, errors.Join(sendErrs...))
}
