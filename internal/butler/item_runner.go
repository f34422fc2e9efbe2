package butler

import (
	"context"
	"errors"
	"fmt"

	"fridge/internal/fridge"
	"fridge/internal/preferences"
	logx "fridge/pkg/logx"
)

// ItemRunner tells the owner what to buy, what is about to expire and what
// already has, one notification per entry and category.
//
// Throttles are read once at the start of the pass, so every entry of an
// allowed category is told; each category that fired records the pass time
// once afterwards.
type ItemRunner struct {
	*BaseRunner
	throttle Throttle
}

func NewItemRunner(deps Deps, t Throttle) *ItemRunner {
	r := &ItemRunner{throttle: t}
	r.BaseRunner = newBaseRunner("items", deps, r.work)
	return r
}

func (r *ItemRunner) work(ctx context.Context, p Params) error {
	d := r.deps
	days, err := d.Prefs.ExpiringDays(ctx)
	if err != nil {
		return err
	}
	sameDay, err := d.Prefs.SameDayExpired(ctx)
	if err != nil {
		return err
	}
	dnd, err := d.Prefs.DNDEnabled(ctx)
	if err != nil {
		return err
	}

	allowed := map[preferences.Category]bool{}
	for _, cat := range []preferences.Category{preferences.Needed, preferences.Expiring, preferences.Expired} {
		ok, err := d.allowed(ctx, r.throttle, cat, p, dnd)
		if err != nil {
			return err
		}
		allowed[cat] = ok
	}
	if !allowed[preferences.Needed] && !allowed[preferences.Expiring] && !allowed[preferences.Expired] {
		r.log.Debug("items throttled", logx.Bool("dnd", dnd))
		return nil
	}

	later := fridge.ExpiringSoonLater(p.Now, days)
	fired := map[preferences.Category]bool{}
	var sendErrs []error
	fire := func(cat preferences.Category, entry fridge.Entry, send func(context.Context) error) {
		if !allowed[cat] {
			return
		}
		if err := d.notification(ctx, r.log, fmt.Sprintf("%s %s", cat, entry.ID), send); err != nil {
			sendErrs = append(sendErrs, err)
			return
		}
		fired[cat] = true
	}

	err = withFridgeData(ctx, d.Data, func(entry fridge.Entry, items []fridge.Item) error {
		b := fridge.Classify(items, p.Now, later, sameDay)
		if b.Empty() {
			return nil
		}
		if len(b.Needed) > 0 {
			fire(preferences.Needed, entry, func(ctx context.Context) error {
				return d.Handler.NotifyNeeded(ctx, entry, b.Needed)
			})
		}
		if len(b.Expiring) > 0 {
			fire(preferences.Expiring, entry, func(ctx context.Context) error {
				return d.Handler.NotifyExpiring(ctx, entry, b.Expiring)
			})
		}
		if len(b.Expired) > 0 {
			fire(preferences.Expired, entry, func(ctx context.Context) error {
				return d.Handler.NotifyExpired(ctx, entry, b.Expired)
			})
		}
		return nil
	})

	for cat := range fired {
		if merr := d.Prefs.MarkNotified(ctx, cat, p.Now); merr != nil {
			sendErrs = append(sendErrs, fmt.Errorf("mark %s: %w", cat, merr))
		}
	}
	if len(fired) > 0 {
		r.log.Info("item reminders sent", logx.Int("categories", len(fired)), logx.Bool("force", p.Force))
	}
	return errors.Join(err, errors.Join(sendErrs...))
}
