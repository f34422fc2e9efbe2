package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fridge/internal/fridge"
	"fridge/internal/storage"

	"github.com/dustin/go-humanize"
)

// resolveEntry finds an entry by id, id prefix or case-insensitive name.
func resolveEntry(ctx context.Context, st storage.Store, ref string) (fridge.Entry, error) {
	ref = strings.TrimSpace(ref)
	if e, err := st.GetEntry(ctx, ref); err == nil {
		return e, nil
	}
	entries, err := st.ListEntries(ctx)
	if err != nil {
		return fridge.Entry{}, err
	}
	var matches []fridge.Entry
	for _, e := range entries {
		if strings.EqualFold(e.Name, ref) || (len(ref) >= 4 && strings.HasPrefix(e.ID, ref)) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return fridge.Entry{}, fmt.Errorf("entry %q: %w", ref, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return fridge.Entry{}, fmt.Errorf("entry %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// resolveItem finds an item by id or id prefix (at least 4 characters).
func resolveItem(ctx context.Context, st storage.Store, ref string) (fridge.Item, error) {
	ref = strings.TrimSpace(ref)
	if it, err := st.GetItem(ctx, ref); err == nil {
		return it, nil
	}
	if len(ref) < 4 {
		return fridge.Item{}, fmt.Errorf("item %q: %w", ref, storage.ErrNotFound)
	}
	items, err := st.ListItems(ctx, "")
	if err != nil {
		return fridge.Item{}, err
	}
	var matches []fridge.Item
	for _, it := range items {
		if strings.HasPrefix(it.ID, ref) {
			matches = append(matches, it)
		}
	}
	switch len(matches) {
	case 0:
		return fridge.Item{}, fmt.Errorf("item %q: %w", ref, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return fridge.Item{}, fmt.Errorf("item %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// parseExpiry accepts YYYY-MM-DD or a day offset like "3", "+3" or "3d".
func parseExpiry(raw string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, "+"), "d"))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry %q (want YYYY-MM-DD or a day offset like 3d)", raw)
	}
	return fridge.Midnight(now).AddDate(0, 0, n), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func metres(d float64) string {
	if d >= 1000 {
		return fmt.Sprintf("%.1f km", d/1000)
	}
	return fmt.Sprintf("%.0f m", d)
}

func itemState(it fridge.Item, now time.Time) string {
	switch {
	case it.IsConsumed():
		return "consumed"
	case it.IsSpoiled():
		return "spoiled"
	}
	if msg := it.ExpirationMessage(now); msg != "" {
		return msg
	}
	return "-"
}
