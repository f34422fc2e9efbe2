// Package preferences stores the user-tunable reminder settings and the
// per-category last-notified timestamps.
package preferences

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category identifies a throttled notification stream.
type Category string

const (
	Needed   Category = "needed"
	Expiring Category = "expiring"
	Expired  Category = "expired"
	Nearby   Category = "nearby"
	Nightly  Category = "nightly"
)

// Categories lists every throttled stream.
var Categories = []Category{Needed, Expiring, Expired, Nearby, Nightly}

const (
	keyLastNotified   = "last_notified."
	keyExpiringDays   = "expiring_days"
	keySameDayExpired = "same_day_expired"
	keyDNDEnabled     = "dnd_enabled"
)

// Keys settable through Set.
const (
	KeyExpiringDays   = keyExpiringDays
	KeySameDayExpired = keySameDayExpired
	KeyDNDEnabled     = keyDNDEnabled
)

// KV is the slice of storage preferences need.
type KV interface {
	GetPref(ctx context.Context, key string) (string, bool, error)
	PutPref(ctx context.Context, key, value string) error
}

// Defaults apply when a key has never been written.
type Defaults struct {
	ExpiringDays   int
	SameDayExpired bool
	DNDEnabled     bool
}

func DefaultDefaults() Defaults {
	return Defaults{ExpiringDays: 2, SameDayExpired: false, DNDEnabled: true}
}

type Preferences interface {
	LastNotified(ctx context.Context, cat Category) (time.Time, error)
	MarkNotified(ctx context.Context, cat Category, at time.Time) error
	ExpiringDays(ctx context.Context) (int, error)
	SameDayExpired(ctx context.Context) (bool, error)
	DNDEnabled(ctx context.Context) (bool, error)
}

type Store struct {
	kv   KV
	defs Defaults
}

var _ Preferences = (*Store)(nil)

func New(kv KV, defs Defaults) *Store {
	return &Store{kv: kv, defs: defs}
}

// LastNotified returns the zero time when the category never fired.
func (s *Store) LastNotified(ctx context.Context, cat Category) (time.Time, error) {
	v, ok, err := s.kv.GetPref(ctx, keyLastNotified+string(cat))
	if err != nil || !ok {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("last notified %s: %w", cat, err)
	}
	return time.UnixMilli(ms), nil
}

func (s *Store) MarkNotified(ctx context.Context, cat Category, at time.Time) error {
	return s.kv.PutPref(ctx, keyLastNotified+string(cat), strconv.FormatInt(at.UnixMilli(), 10))
}

func (s *Store) ExpiringDays(ctx context.Context) (int, error) {
	v, ok, err := s.kv.GetPref(ctx, keyExpiringDays)
	if err != nil || !ok {
		return s.defs.ExpiringDays, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return s.defs.ExpiringDays, fmt.Errorf("%s: %w", keyExpiringDays, err)
	}
	return n, nil
}

func (s *Store) SameDayExpired(ctx context.Context) (bool, error) {
	return s.boolPref(ctx, keySameDayExpired, s.defs.SameDayExpired)
}

func (s *Store) DNDEnabled(ctx context.Context) (bool, error) {
	return s.boolPref(ctx, keyDNDEnabled, s.defs.DNDEnabled)
}

func (s *Store) boolPref(ctx context.Context, key string, def bool) (bool, error) {
	v, ok, err := s.kv.GetPref(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// Set validates and writes a user-settable key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case keyExpiringDays:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		value = strconv.Itoa(n)
	case keySameDayExpired, keyDNDEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		value = strconv.FormatBool(b)
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return s.kv.PutPref(ctx, key, value)
}

// Snapshot is every preference at once, for display.
type Snapshot struct {
	ExpiringDays   int
	SameDayExpired bool
	DNDEnabled     bool
	LastNotified   map[Category]time.Time
}

func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.ExpiringDays, err = s.ExpiringDays(ctx); err != nil {
		return snap, err
	}
	if snap.SameDayExpired, err = s.SameDayExpired(ctx); err != nil {
		return snap, err
	}
	if snap.DNDEnabled, err = s.DNDEnabled(ctx); err != nil {
		return snap, err
	}
	snap.LastNotified = make(map[Category]time.Time, len(Categories))
	for _, c := range Categories {
		t, err := s.LastNotified(ctx, c)
		if err != nil {
			return snap, err
		}
		snap.LastNotified[c] = t
	}
	return snap, nil
}
