package storage

import (
	"context"
	"errors"
	"time"

	"fridge/internal/fridge"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrLocked   = errors.New("storage: database is owned by another process")
)

// Config configures storage.
//
// Driver values:
//   - "sqlite" (default): Path is the database file
//   - "memory": nothing is written to disk
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	// Exclusive takes a lock file beside the database so only one daemon
	// runs reminders against it.
	Exclusive bool
}

// Store is the persistence API used by runners, preferences and the CLI.
//
// Saving is what makes a placeholder real: PutEntry and PutItem store the
// value as real, and reads always return real values.
type Store interface {
	PutEntry(ctx context.Context, e fridge.Entry) error
	GetEntry(ctx context.Context, id string) (fridge.Entry, error)
	ListEntries(ctx context.Context) ([]fridge.Entry, error)
	// DeleteEntry removes the entry and its items.
	DeleteEntry(ctx context.Context, id string) error

	PutItem(ctx context.Context, it fridge.Item) error
	GetItem(ctx context.Context, id string) (fridge.Item, error)
	ListItems(ctx context.Context, entryID string) ([]fridge.Item, error)
	DeleteItem(ctx context.Context, id string) error

	PutStore(ctx context.Context, s fridge.NearbyStore) error
	ListStores(ctx context.Context) ([]fridge.NearbyStore, error)
	DeleteStore(ctx context.Context, id string) error
	PutZone(ctx context.Context, z fridge.NearbyZone) error
	ListZones(ctx context.Context) ([]fridge.NearbyZone, error)
	DeleteZone(ctx context.Context, id string) error

	GetPref(ctx context.Context, key string) (value string, ok bool, err error)
	PutPref(ctx context.Context, key, value string) error

	AppendAudit(ctx context.Context, e AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)

	PutDedup(ctx context.Context, key string, until time.Time) error
	GetDedup(ctx context.Context, key string) (until time.Time, ok bool, err error)

	Close() error
}

// AuditEntry records an operator action.
type AuditEntry struct {
	At     time.Time
	Actor  string
	Action string
	Target string
	OK     bool
	Error  string
	Meta   string
}
