package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fridge/internal/butler"
	"fridge/internal/config"
	"fridge/internal/fridge"
	"fridge/internal/location"
	"fridge/internal/preferences"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Logging = config.LoggingConfig{Level: "error"}
	cfg.Storage = &config.StorageConfig{Driver: "memory"}
	return cfg
}

func TestMappingDefaults(t *testing.T) {
	cfg := testConfig()

	ncfg, err := mapNotifierConfig(cfg)
	require.NoError(t, err)
	assert.True(t, ncfg.Enabled, "an omitted notifier section still delivers")

	ecfg, err := mapEngineConfig(cfg)
	require.NoError(t, err)
	assert.Negative(t, ecfg.RetryMax)

	bc := mapButlerConfig(cfg)
	assert.Equal(t, &butler.DNDWindow{Start: 7, End: 22}, bc.DND)
	assert.Equal(t, butler.NightlyHour, config.NightlyEarliestHour)
	assert.Equal(t, "20:00", bc.NightlyAt)

	assert.Equal(t, preferences.Defaults{ExpiringDays: 2, DNDEnabled: true}, mapPrefDefaults(cfg))
	assert.Equal(t, location.None{}, mapLocation(cfg))

	sc, err := mapStorageConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "memory", sc.Driver)
	assert.Equal(t, time.Second, sc.BusyTimeout)
}

func TestMapLocationPrefersFile(t *testing.T) {
	lat, lon := 52.5, 13.4
	cfg := testConfig()
	cfg.Fridge.Location = config.LocationConfig{Lat: &lat, Lon: &lon}
	assert.Equal(t, location.Static{Point: fridge.Point{Lat: lat, Lon: lon}}, mapLocation(cfg))

	cfg.Fridge.Location.File = "/run/fridge/where"
	assert.Equal(t, location.File{Path: "/run/fridge/where"}, mapLocation(cfg))
}

func TestRunOnceUsesLogTransport(t *testing.T) {
	ctx := context.Background()
	a, err := NewWithConfig(filepath.Join(t.TempDir(), "fridge.yaml"), testConfig(), Options{})
	require.NoError(t, err)
	defer a.Close()

	now := time.Now()
	entry := fridge.NewEntry("Fridge", now)
	require.NoError(t, a.Store().PutEntry(ctx, entry))
	require.NoError(t, a.Store().PutItem(ctx, fridge.NewItem(entry.ID, "butter", fridge.Need, now)))
	require.NoError(t, a.Prefs().Set(ctx, preferences.KeyDNDEnabled, "false"))

	res, err := a.RunOnce(ctx, butler.KindItems, true)
	require.NoError(t, err)
	assert.Equal(t, butler.Success, res)

	last, err := a.Prefs().LastNotified(ctx, preferences.Needed)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
	assert.Len(t, a.notif.History(), 1)
}

func TestForcedRunOnceDeliversInsideDedupWindow(t *testing.T) {
	ctx := context.Background()
	a, err := NewWithConfig(filepath.Join(t.TempDir(), "fridge.yaml"), testConfig(), Options{})
	require.NoError(t, err)
	defer a.Close()

	now := time.Now()
	entry := fridge.NewEntry("Fridge", now)
	require.NoError(t, a.Store().PutEntry(ctx, entry))
	require.NoError(t, a.Store().PutItem(ctx, fridge.NewItem(entry.ID, "butter", fridge.Need, now)))
	require.NoError(t, a.Prefs().Set(ctx, preferences.KeyDNDEnabled, "false"))

	for i := 0; i < 2; i++ {
		res, err := a.RunOnce(ctx, butler.KindItems, true)
		require.NoError(t, err)
		require.Equal(t, butler.Success, res)
	}
	assert.Len(t, a.notif.History(), 2, "every forced pass that records a send delivers it")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Fridge.NightlyAt = "25:99"
	_, err := NewWithConfig("fridge.yaml", cfg, Options{})
	assert.Error(t, err)
}
