// Package notify turns runner decisions into human-readable reminders and
// hands them to the delivery pipeline.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fridge/internal/fridge"
	kit "fridge/internal/transport"
	logx "fridge/pkg/logx"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrStoreZoneExclusive is returned when a nearby reminder names both a store
// and a zone, or neither.
var ErrStoreZoneExclusive = errors.New("notify: exactly one of store or zone is required")

// Handler is what runners call when a reminder should go out.
type Handler interface {
	NotifyNeeded(ctx context.Context, entry fridge.Entry, items []fridge.Item) error
	NotifyExpiring(ctx context.Context, entry fridge.Entry, items []fridge.Item) error
	NotifyExpired(ctx context.Context, entry fridge.Entry, items []fridge.Item) error
	NotifyNearby(ctx context.Context, store *fridge.NearbyStore, zone *fridge.NearbyZone, items []fridge.Item) error
	NotifyNightly(ctx context.Context, entry fridge.Entry) error
}

// Sender is the delivery pipeline (notifier.Service).
type Sender interface {
	Notify(ctx context.Context, n kit.Notification) error
}

// Priorities per reminder kind; the pipeline prefixes high ones with a marker.
const (
	PriorityNeeded   = 3
	PriorityNightly  = 3
	PriorityNearby   = 5
	PriorityExpiring = 5
	PriorityExpired  = 7
)

type forceKey struct{}

// WithForce marks reminders sent under ctx as forced. Forced reminders are
// delivered even when an identical one went out inside the dedup window.
func WithForce(ctx context.Context) context.Context {
	return context.WithValue(ctx, forceKey{}, true)
}

func Forced(ctx context.Context) bool {
	v, _ := ctx.Value(forceKey{}).(bool)
	return v
}

// maxListed caps the item lines in one message.
const maxListed = 15

type Messenger struct {
	sender Sender
	target kit.Target
	log    logx.Logger
	clock  func() time.Time
}

var _ Handler = (*Messenger)(nil)

func New(sender Sender, target kit.Target, log logx.Logger) *Messenger {
	return &Messenger{
		sender: sender,
		target: target,
		log:    log.With(logx.String("comp", "notify")),
		clock:  time.Now,
	}
}

// WithClock overrides the time used for expiration messages.
func (m *Messenger) WithClock(clock func() time.Time) *Messenger {
	m.clock = clock
	return m
}

func (m *Messenger) NotifyNeeded(ctx context.Context, entry fridge.Entry, items []fridge.Item) error {
	head := fmt.Sprintf("🛒 %s: %s to buy", m.displayName(entry.Name), plural(len(items), "item"))
	return m.send(ctx, PriorityNeeded, head, m.lines(items, func(it fridge.Item) string {
		if it.Count > 1 {
			return fmt.Sprintf("%s ×%d", m.displayName(it.Name), it.Count)
		}
		return m.displayName(it.Name)
	}))
}

func (m *Messenger) NotifyExpiring(ctx context.Context, entry fridge.Entry, items []fridge.Item) error {
	now := m.clock()
	head := fmt.Sprintf("⏳ %s: %s expiring soon", m.displayName(entry.Name), plural(len(items), "item"))
	return m.send(ctx, PriorityExpiring, head, m.lines(items, func(it fridge.Item) string {
		return m.displayName(it.Name) + " - " + it.ExpirationMessage(now)
	}))
}

func (m *Messenger) NotifyExpired(ctx context.Context, entry fridge.Entry, items []fridge.Item) error {
	now := m.clock()
	head := fmt.Sprintf("🗑 %s: %s expired", m.displayName(entry.Name), plural(len(items), "item"))
	return m.send(ctx, PriorityExpired, head, m.lines(items, func(it fridge.Item) string {
		return m.displayName(it.Name) + " - " + it.ExpirationMessage(now)
	}))
}

func (m *Messenger) NotifyNearby(ctx context.Context, store *fridge.NearbyStore, zone *fridge.NearbyZone, items []fridge.Item) error {
	var place string
	switch {
	case store != nil && zone == nil:
		place = store.Name
	case zone != nil && store == nil:
		place = zone.Name
	default:
		return ErrStoreZoneExclusive
	}
	if strings.TrimSpace(place) == "" {
		place = "a store"
	}
	head := fmt.Sprintf("📍 You're near %s. Still needed: %s", m.displayName(place), plural(len(items), "item"))
	return m.send(ctx, PriorityNearby, head, m.lines(items, func(it fridge.Item) string {
		return m.displayName(it.Name)
	}))
}

func (m *Messenger) NotifyNightly(ctx context.Context, entry fridge.Entry) error {
	head := fmt.Sprintf("🌙 %s: time for the nightly check. Mark anything you used or threw away.", m.displayName(entry.Name))
	return m.send(ctx, PriorityNightly, head, nil)
}

func (m *Messenger) send(ctx context.Context, priority int, head string, lines []string) error {
	text := head
	if len(lines) > 0 {
		text += "\n" + strings.Join(lines, "\n")
	}
	m.log.Debug("reminder", logx.Int("priority", priority), logx.Int("lines", len(lines)))
	return m.sender.Notify(ctx, kit.Notification{
		Priority: priority,
		Target:   m.target,
		Text:     text,
		Options:  &kit.SendOptions{DisablePreview: true, Silent: priority < PriorityExpiring},
		Force:    Forced(ctx),
	})
}

func (m *Messenger) lines(items []fridge.Item, format func(fridge.Item) string) []string {
	out := make([]string, 0, min(len(items), maxListed)+1)
	for i, it := range items {
		if i == maxListed {
			out = append(out, fmt.Sprintf("…and %d more", len(items)-maxListed))
			break
		}
		out = append(out, "• "+format(it))
	}
	return out
}

// displayName title-cases a name. Casers hold state, so each call builds its own.
func (m *Messenger) displayName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unnamed"
	}
	return cases.Title(language.English).String(s)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
