package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"fridge/internal/fridge"
	kit "fridge/internal/transport"
	logx "fridge/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	got []kit.Notification
}

func (c *captureSender) Notify(_ context.Context, n kit.Notification) error {
	c.got = append(c.got, n)
	return nil
}

var now = time.Date(2024, 5, 14, 18, 0, 0, 0, time.UTC)

func newMessenger() (*Messenger, *captureSender) {
	cs := &captureSender{}
	m := New(cs, kit.Target{ChatID: 42}, logx.Nop()).WithClock(func() time.Time { return now })
	return m, cs
}

func TestExpiredMessage(t *testing.T) {
	m, cs := newMessenger()
	entry := fridge.NewEntry("kitchen fridge", now)
	milk := fridge.NewItem(entry.ID, "oat milk", fridge.Have, now).WithExpireTime(now.AddDate(0, 0, -2))

	require.NoError(t, m.NotifyExpired(context.Background(), entry, []fridge.Item{milk}))
	require.Len(t, cs.got, 1)
	n := cs.got[0]
	assert.Equal(t, PriorityExpired, n.Priority)
	assert.Equal(t, int64(42), n.Target.ChatID)
	assert.Contains(t, n.Text, "Kitchen Fridge: 1 item expired")
	assert.Contains(t, n.Text, "Oat Milk - Expired 2 days ago")
}

func TestNeededListsCountsAndTruncates(t *testing.T) {
	m, cs := newMessenger()
	entry := fridge.NewEntry("groceries", now)
	var items []fridge.Item
	for i := 0; i < maxListed+3; i++ {
		items = append(items, fridge.NewItem(entry.ID, "eggs", fridge.Need, now).WithCount(12))
	}
	require.NoError(t, m.NotifyNeeded(context.Background(), entry, items))
	text := cs.got[0].Text
	assert.Contains(t, text, "18 items to buy")
	assert.Contains(t, text, "Eggs ×12")
	assert.Contains(t, text, "and 3 more")
	assert.Equal(t, maxListed+2, len(strings.Split(text, "\n")))
	assert.True(t, cs.got[0].Options.Silent)
}

func TestNearbyExclusive(t *testing.T) {
	m, cs := newMessenger()
	store := &fridge.NearbyStore{ID: "s", Name: "corner shop"}
	zone := &fridge.NearbyZone{ID: "z", Name: "mall"}
	items := []fridge.Item{fridge.NewItem("e", "bread", fridge.Need, now)}
	ctx := context.Background()

	assert.ErrorIs(t, m.NotifyNearby(ctx, store, zone, items), ErrStoreZoneExclusive)
	assert.ErrorIs(t, m.NotifyNearby(ctx, nil, nil, items), ErrStoreZoneExclusive)
	assert.Empty(t, cs.got)

	require.NoError(t, m.NotifyNearby(ctx, store, nil, items))
	require.NoError(t, m.NotifyNearby(ctx, nil, zone, items))
	require.Len(t, cs.got, 2)
	assert.Contains(t, cs.got[0].Text, "near Corner Shop")
	assert.Contains(t, cs.got[1].Text, "near Mall")
}

func TestNightly(t *testing.T) {
	m, cs := newMessenger()
	require.NoError(t, m.NotifyNightly(context.Background(), fridge.NewEntry("", now)))
	assert.Contains(t, cs.got[0].Text, "Unnamed: time for the nightly check")
}

func TestForceTravelsWithContext(t *testing.T) {
	m, cs := newMessenger()
	entry := fridge.NewEntry("Fridge", now)
	items := []fridge.Item{fridge.NewItem(entry.ID, "milk", fridge.Need, now)}

	require.NoError(t, m.NotifyNeeded(context.Background(), entry, items))
	require.NoError(t, m.NotifyNeeded(WithForce(context.Background()), entry, items))
	require.Len(t, cs.got, 2)
	assert.False(t, cs.got[0].Force)
	assert.True(t, cs.got[1].Force)
}
