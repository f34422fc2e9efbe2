package butler

import (
	"context"
	"fmt"

	"fridge/internal/fridge"
	"fridge/internal/location"
	"fridge/internal/preferences"
	logx "fridge/pkg/logx"

	"golang.org/x/sync/errgroup"
)

// NearbyRunner tells the owner what to buy when a known store or zone is
// within Radius of a point.
type NearbyRunner struct {
	deps     Deps
	log      logx.Logger
	throttle Throttle
	Radius   float64
}

func NewNearbyRunner(deps Deps, t Throttle, radius float64) *NearbyRunner {
	if radius <= 0 {
		radius = fridge.GeofenceRadius
	}
	return &NearbyRunner{deps: deps, log: deps.Log.With(logx.String("runner", "nearby")), throttle: t, Radius: radius}
}

// Closest picks the nearest store and zone within radius. When both exist
// the closer one wins, so at most one of the results is non-nil.
func Closest(at fridge.Point, stores []fridge.NearbyStore, zones []fridge.NearbyZone, radius float64) (*fridge.NearbyStore, *fridge.NearbyZone) {
	s, sd, sok := fridge.NearestStore(at, stores, radius)
	z, zd, zok := fridge.NearestZone(at, zones, radius)
	switch {
	case sok && zok:
		if sd <= zd {
			return &s, nil
		}
		return nil, &z
	case sok:
		return &s, nil
	case zok:
		return nil, &z
	default:
		return nil, nil
	}
}

// NotifyAt runs the nearby check for one location.
func (r *NearbyRunner) NotifyAt(ctx context.Context, at fridge.Point, p Params) error {
	d := r.deps
	dnd, err := d.Prefs.DNDEnabled(ctx)
	if err != nil {
		return err
	}
	ok, err := d.allowed(ctx, r.throttle, preferences.Nearby, p, dnd)
	if err != nil || !ok {
		return err
	}

	var (
		stores []fridge.NearbyStore
		zones  []fridge.NearbyZone
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stores, err = d.Data.ListStores(gctx)
		return err
	})
	g.Go(func() (err error) {
		zones, err = d.Data.ListZones(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load places: %w", err)
	}

	store, zone := Closest(at, stores, zones, r.Radius)
	if store == nil && zone == nil {
		r.log.Debug("nothing nearby", logx.String("at", at.String()), logx.Int("stores", len(stores)), logx.Int("zones", len(zones)))
		return nil
	}

	var needed []fridge.Item
	if err := withFridgeData(ctx, d.Data, func(_ fridge.Entry, items []fridge.Item) error {
		needed = append(needed, fridge.NeededOf(items)...)
		return nil
	}); err != nil {
		return err
	}
	if len(needed) == 0 {
		return nil
	}

	if err := d.notification(ctx, r.log, "nearby", func(ctx context.Context) error {
		return d.Handler.NotifyNearby(ctx, store, zone, needed)
	}); err != nil {
		return err
	}
	return d.Prefs.MarkNotified(ctx, preferences.Nearby, p.Now)
}

// LocationRunner feeds the provider's current location into a NearbyRunner.
// Without a fix the pass succeeds quietly.
type LocationRunner struct {
	*BaseRunner
	nearby   *NearbyRunner
	provider location.Provider
}

func NewLocationRunner(deps Deps, t Throttle, radius float64, provider location.Provider) *LocationRunner {
	if provider == nil {
		provider = location.None{}
	}
	r := &LocationRunner{nearby: NewNearbyRunner(deps, t, radius), provider: provider}
	r.BaseRunner = newBaseRunner("location", deps, r.work)
	return r
}

func (r *LocationRunner) work(ctx context.Context, p Params) error {
	at, ok, err := r.provider.Current(ctx)
	if err != nil {
		return fmt.Errorf("current location: %w", err)
	}
	if !ok {
		r.log.Debug("no location fix")
		return nil
	}
	return r.nearby.NotifyAt(ctx, at, p)
}
