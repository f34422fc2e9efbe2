package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"fridge/internal/fridge"
)

// memoryStore keeps everything in maps guarded by one mutex.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]fridge.Entry
	items   map[string]fridge.Item
	stores  map[string]fridge.NearbyStore
	zones   map[string]fridge.NearbyZone
	prefs   map[string]string
	dedup   map[string]time.Time
	audit   []AuditEntry
}

// NewMemory returns an empty in-process store.
func NewMemory() Store {
	return &memoryStore{
		entries: map[string]fridge.Entry{},
		items:   map[string]fridge.Item{},
		stores:  map[string]fridge.NearbyStore{},
		zones:   map[string]fridge.NearbyZone{},
		prefs:   map[string]string{},
		dedup:   map[string]time.Time{},
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) PutEntry(_ context.Context, e fridge.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.entries[e.ID]; ok {
		e.CreatedTime = prev.CreatedTime
	}
	m.entries[e.ID] = e.MakeReal()
	return nil
}

func (m *memoryStore) GetEntry(_ context.Context, id string) (fridge.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return fridge.Entry{}, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (m *memoryStore) ListEntries(context.Context) ([]fridge.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]fridge.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedTime.Equal(out[j].CreatedTime) {
			return out[i].CreatedTime.Before(out[j].CreatedTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	delete(m.entries, id)
	for k, it := range m.items {
		if it.EntryID == id {
			delete(m.items, k)
		}
	}
	return nil
}

func (m *memoryStore) PutItem(_ context.Context, it fridge.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[it.EntryID]; !ok {
		return fmt.Errorf("entry %s: %w", it.EntryID, ErrNotFound)
	}
	if prev, ok := m.items[it.ID]; ok {
		it.CreatedTime = prev.CreatedTime
	}
	m.items[it.ID] = it.MakeReal()
	return nil
}

func (m *memoryStore) GetItem(_ context.Context, id string) (fridge.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fridge.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return it, nil
}

func (m *memoryStore) ListItems(_ context.Context, entryID string) ([]fridge.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []fridge.Item
	for _, it := range m.items {
		if entryID == "" || it.EntryID == entryID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedTime.Equal(out[j].CreatedTime) {
			return out[i].CreatedTime.Before(out[j].CreatedTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) DeleteItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	delete(m.items, id)
	return nil
}

func (m *memoryStore) PutStore(_ context.Context, s fridge.NearbyStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[s.ID] = s
	return nil
}

func (m *memoryStore) ListStores(context.Context) ([]fridge.NearbyStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]fridge.NearbyStore, 0, len(m.stores))
	for _, s := range m.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return byNameID(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (m *memoryStore) DeleteStore(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[id]; !ok {
		return fmt.Errorf("store %s: %w", id, ErrNotFound)
	}
	delete(m.stores, id)
	return nil
}

func (m *memoryStore) PutZone(_ context.Context, z fridge.NearbyZone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	z.Points = slices.Clone(z.Points)
	m.zones[z.ID] = z
	return nil
}

func (m *memoryStore) ListZones(context.Context) ([]fridge.NearbyZone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]fridge.NearbyZone, 0, len(m.zones))
	for _, z := range m.zones {
		z.Points = slices.Clone(z.Points)
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return byNameID(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (m *memoryStore) DeleteZone(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[id]; !ok {
		return fmt.Errorf("zone %s: %w", id, ErrNotFound)
	}
	delete(m.zones, id)
	return nil
}

func (m *memoryStore) GetPref(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.prefs[key]
	return v, ok, nil
}

func (m *memoryStore) PutPref(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[key] = value
	return nil
}

func (m *memoryStore) AppendAudit(_ context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

func (m *memoryStore) ListAudit(_ context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditEntry, 0, min(limit, len(m.audit)))
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.audit[i])
	}
	return out, nil
}

func (m *memoryStore) PutDedup(_ context.Context, key string, until time.Time) error {
	if key == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dedup[key] = until
	return nil
}

func (m *memoryStore) GetDedup(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.dedup[key]
	return until, ok, nil
}

func byNameID(ni, ii, nj, ij string) bool {
	if c := strings.Compare(ni, nj); c != 0 {
		return c < 0
	}
	return ii < ij
}
