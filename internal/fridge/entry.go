package fridge

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is a named grocery list or fridge that owns items.
type Entry struct {
	ID          string
	Name        string
	CreatedTime time.Time
	real        bool
}

func NewEntry(name string, now time.Time) Entry {
	return Entry{ID: uuid.NewString(), Name: strings.TrimSpace(name), CreatedTime: now, real: true}
}

func PlaceholderEntry(now time.Time) Entry {
	return Entry{ID: uuid.NewString(), CreatedTime: now}
}

// RestoreEntry rebuilds a persisted entry.
func RestoreEntry(id, name string, created time.Time) Entry {
	return Entry{ID: id, Name: name, CreatedTime: created, real: true}
}

func (e Entry) IsReal() bool { return e.real }

func (e Entry) WithName(name string) Entry {
	e.Name = strings.TrimSpace(name)
	return e
}

func (e Entry) MakeReal() Entry {
	e.real = true
	return e
}

// Category groups items (dairy, produce...).
type Category struct {
	ID   string
	Name string
}
