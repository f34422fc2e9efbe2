package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fridge/internal/fridge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fridge.yaml")
	body := fmt.Sprintf(`logging:
  level: error
storage:
  driver: sqlite
  path: %s
fridge:
  dnd_enabled: false
`, filepath.Join(dir, "fridge.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEntryAndItemLifecycle(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, cfg, "entry", "add", "Kitchen")
	require.NoError(t, err)
	assert.Contains(t, out, "Created entry Kitchen")

	out, err = runCLI(t, cfg, "item", "add", "kitchen", "milk", "--expires", "2d")
	require.NoError(t, err)
	assert.Contains(t, out, "Added milk to Kitchen")

	_, err = runCLI(t, cfg, "item", "add", "Kitchen", "bread", "--need")
	require.NoError(t, err)

	out, err = runCLI(t, cfg, "item", "list", "Kitchen")
	require.NoError(t, err)
	assert.Contains(t, out, "Expires in 2 days")
	assert.Contains(t, out, "NEED")

	out, err = runCLI(t, cfg, "entry", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Kitchen")

	out, err = runCLI(t, cfg, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "item.add")
}

func TestRunItemsWithLogTransport(t *testing.T) {
	cfg := writeConfig(t)
	_, err := runCLI(t, cfg, "entry", "add", "Kitchen")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "item", "add", "Kitchen", "eggs", "--need")
	require.NoError(t, err)

	out, err := runCLI(t, cfg, "run", "items", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "items: success")

	out, err = runCLI(t, cfg, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "dnd_enabled")

	_, err = runCLI(t, cfg, "run", "weekly")
	assert.Error(t, err)
}

func TestPrefsSetValidates(t *testing.T) {
	cfg := writeConfig(t)
	out, err := runCLI(t, cfg, "prefs", "set", "expiring_days", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "expiring_days = 4")

	_, err = runCLI(t, cfg, "prefs", "set", "expiring_days", "soon")
	assert.Error(t, err)
}

func TestStoreAndZone(t *testing.T) {
	cfg := writeConfig(t)
	_, err := runCLI(t, cfg, "store", "add", "Corner", "52.52,13.405")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "zone", "add", "Market", "52.521,13.40", "52.522,13.41")
	require.NoError(t, err)

	out, err := runCLI(t, cfg, "store", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "52.520000,13.405000")

	out, err = runCLI(t, cfg, "zone", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Market")

	_, err = runCLI(t, cfg, "store", "add", "Bad", "north")
	assert.Error(t, err)
}

func TestParseExpiry(t *testing.T) {
	now := time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)
	got, err := parseExpiry("3d", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 7, 0, 0, 0, 0, time.UTC), got)

	got, err = parseExpiry("2026-06-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseExpiry("next week", now)
	assert.Error(t, err)
}

func TestSortByExpiry(t *testing.T) {
	now := time.Now()
	later := fridge.NewItem("e", "later", fridge.Have, now).WithExpireTime(now.AddDate(0, 0, 5))
	sooner := fridge.NewItem("e", "sooner", fridge.Have, now).WithExpireTime(now.AddDate(0, 0, 1))
	undated := fridge.NewItem("e", "apples", fridge.Have, now)

	items := []fridge.Item{undated, later, sooner}
	sortByExpiry(items)
	assert.Equal(t, []string{"sooner", "later", "apples"}, []string{items[0].Name, items[1].Name, items[2].Name})
}
