package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fridge/internal/fridge"
	logx "fridge/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drivers(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			st, err := Open(Config{Driver: "memory"}, logx.Nop())
			require.NoError(t, err)
			return st
		},
		"sqlite": func(t *testing.T) Store {
			st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "fridge.db")}, logx.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })
			return st
		},
	}
}

func TestEntriesAndItems(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open(t)

			e := fridge.NewEntry("Kitchen", now)
			require.NoError(t, st.PutEntry(ctx, e))

			orphan := fridge.NewItem("missing", "x", fridge.Have, now)
			assert.Error(t, st.PutItem(ctx, orphan))

			exp := now.AddDate(0, 0, 3)
			milk := fridge.NewItem(e.ID, "milk", fridge.Have, now).WithExpireTime(exp).WithCategory("dairy")
			bread := fridge.NewItem(e.ID, "bread", fridge.Need, now.Add(time.Second))
			require.NoError(t, st.PutItem(ctx, milk))
			require.NoError(t, st.PutItem(ctx, bread))

			got, err := st.GetItem(ctx, milk.ID)
			require.NoError(t, err)
			assert.True(t, got.IsReal())
			assert.Equal(t, "milk", got.Name)
			require.NotNil(t, got.ExpireTime)
			assert.True(t, got.ExpireTime.Equal(exp))
			require.NotNil(t, got.CategoryID)
			assert.Equal(t, "dairy", *got.CategoryID)

			consumed, err := got.Consume(now)
			require.NoError(t, err)
			require.NoError(t, st.PutItem(ctx, consumed))
			got, err = st.GetItem(ctx, milk.ID)
			require.NoError(t, err)
			assert.True(t, got.IsArchived())

			items, err := st.ListItems(ctx, e.ID)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "milk", items[0].Name)

			all, err := st.ListItems(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 2)

			require.NoError(t, st.DeleteItem(ctx, bread.ID))
			assert.ErrorIs(t, st.DeleteItem(ctx, bread.ID), ErrNotFound)

			require.NoError(t, st.DeleteEntry(ctx, e.ID))
			_, err = st.GetEntry(ctx, e.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = st.GetItem(ctx, milk.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSavingPlaceholderMakesItReal(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open(t)

			e := fridge.PlaceholderEntry(now).WithName("Pantry")
			require.False(t, e.IsReal())
			require.NoError(t, st.PutEntry(ctx, e))

			draft := fridge.PlaceholderItem(e.ID, now).WithName("rice")
			_, err := draft.ConsumptionDate()
			require.ErrorIs(t, err, fridge.ErrNotReal)
			require.NoError(t, st.PutItem(ctx, draft))

			got, err := st.GetItem(ctx, draft.ID)
			require.NoError(t, err)
			assert.True(t, got.IsReal())
			assert.Equal(t, "rice", got.Name)
			assert.False(t, got.IsArchived())
			consumed, err := got.ConsumptionDate()
			require.NoError(t, err)
			assert.Nil(t, consumed)

			ge, err := st.GetEntry(ctx, e.ID)
			require.NoError(t, err)
			assert.True(t, ge.IsReal())
			assert.Equal(t, "Pantry", ge.Name)
		})
	}
}

func TestStoresAndZones(t *testing.T) {
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open(t)

			require.NoError(t, st.PutStore(ctx, fridge.NearbyStore{ID: "s1", Name: "Corner", Point: fridge.Point{Lat: 1, Lon: 2}}))
			require.NoError(t, st.PutZone(ctx, fridge.NearbyZone{ID: "z1", Name: "Mall", Points: []fridge.Point{{Lat: 1, Lon: 1}, {Lat: 1.1, Lon: 1}}}))
			require.NoError(t, st.PutZone(ctx, fridge.NearbyZone{ID: "z2", Name: "Bare"}))

			stores, err := st.ListStores(ctx)
			require.NoError(t, err)
			require.Len(t, stores, 1)
			assert.Equal(t, 2.0, stores[0].Point.Lon)

			zones, err := st.ListZones(ctx)
			require.NoError(t, err)
			require.Len(t, zones, 2)
			assert.Equal(t, "Bare", zones[0].Name)
			assert.Empty(t, zones[0].Points)
			assert.Len(t, zones[1].Points, 2)

			require.NoError(t, st.DeleteZone(ctx, "z1"))
			assert.ErrorIs(t, st.DeleteStore(ctx, "nope"), ErrNotFound)
		})
	}
}

func TestPrefsAuditDedup(t *testing.T) {
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open(t)

			_, ok, err := st.GetPref(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
			require.NoError(t, st.PutPref(ctx, "k", "1"))
			require.NoError(t, st.PutPref(ctx, "k", "2"))
			v, ok, err := st.GetPref(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "2", v)

			require.NoError(t, st.AppendAudit(ctx, AuditEntry{Actor: "cli", Action: "item.add", Target: "milk", OK: true}))
			require.NoError(t, st.AppendAudit(ctx, AuditEntry{Actor: "cli", Action: "item.rm", OK: false, Error: "not found"}))
			audit, err := st.ListAudit(ctx, 10)
			require.NoError(t, err)
			require.Len(t, audit, 2)
			assert.Equal(t, "item.rm", audit[0].Action)
			assert.False(t, audit[0].OK)
			assert.True(t, audit[1].OK)

			until := time.Now().Add(time.Minute).Truncate(time.Millisecond)
			require.NoError(t, st.PutDedup(ctx, "key", until))
			got, ok, err := st.GetDedup(ctx, "key")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.True(t, got.Equal(until))
		})
	}
}

func TestExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fridge.db")
	first, err := Open(Config{Path: path, Exclusive: true}, logx.Nop())
	require.NoError(t, err)

	_, err = Open(Config{Path: path, Exclusive: true}, logx.Nop())
	assert.ErrorIs(t, err, ErrLocked)

	// Non-exclusive opens (the CLI) still work.
	cli, err := Open(Config{Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, cli.Close())

	require.NoError(t, first.Close())
	again, err := Open(Config{Path: path, Exclusive: true}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "postgres"}, logx.Nop())
	assert.Error(t, err)
}
